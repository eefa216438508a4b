package personstore

import (
	"context"
	"fmt"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PersonBlockForm struct {
	PersonID models.PersonID `json:"person_id"`
	TargetID models.PersonID `json:"target_id"`
}

// Block marks TargetID as blocked by PersonID. It shares the action row with any follow.
func (s *Store) Block(ctx context.Context, form *PersonBlockForm) (*models.PersonBlock, error) {
	ctx, span := tracer.Start(ctx, "Block")
	defer span.End()

	now := s.timestamp()
	row := models.PersonActions{
		PersonID: form.PersonID,
		TargetID: form.TargetID,
		Blocked:  &now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePersonsExist(tx, form.PersonID, form.TargetID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"blocked"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to write block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &models.PersonBlock{PersonID: form.PersonID, TargetID: form.TargetID, Blocked: now}, nil
}

func (s *Store) Unblock(ctx context.Context, form *PersonBlockForm) (UpleteCount, error) {
	ctx, span := tracer.Start(ctx, "Unblock")
	defer span.End()

	var cnt UpleteCount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cnt, err = uplete(tx, form.PersonID, form.TargetID, []string{"blocked"})
		return err
	})
	if err != nil {
		return UpleteCount{}, translateError(err)
	}
	return cnt, nil
}

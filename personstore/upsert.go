package personstore

import (
	"context"
	"fmt"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Upsert inserts the person, or overwrites the existing row with the same ap_id.
//
// Federation has no separate create and update messages: every inbound profile is authoritative at
// time of receipt. Every column the form carries overwrites the stored value, in a single
// INSERT .. ON CONFLICT statement; there is no read-then-branch.
func (s *Store) Upsert(ctx context.Context, form *PersonInsertForm) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "Upsert")
	defer span.End()

	if form.ApID == nil || *form.ApID == "" {
		return nil, ErrMissingExternalID
	}

	row := form.row(s.timestamp())
	var out models.Person
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ap_id"}},
			DoUpdates: clause.AssignmentColumns(form.columns()),
		}).Create(row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert person: %w", err)
		}
		// the generated id is not reliable when the conflict branch ran
		return tx.Where("ap_id = ?", row.ApID).First(&out).Error
	})
	if err != nil {
		return nil, translateError(err)
	}

	personsUpserted.Inc()
	s.evict(out.ApID)
	return &out, nil
}

package personstore

import (
	"context"
	"fmt"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersonFollowerForm identifies the edge "FollowerID follows PersonID".
type PersonFollowerForm struct {
	PersonID   models.PersonID `json:"person_id"`
	FollowerID models.PersonID `json:"follower_id"`
	Pending    bool            `json:"pending"`
}

// both ends of an edge must exist (deleted persons included); edges never cascade into persons
func ensurePersonsExist(tx *gorm.DB, ids ...models.PersonID) error {
	uniq := map[models.PersonID]bool{}
	for _, id := range ids {
		uniq[id] = true
	}
	var n int64
	if err := tx.Model(&models.Person{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if n != int64(len(uniq)) {
		return ErrNotFound
	}
	return nil
}

// Follow creates or overwrites the follow edge. Re-following an existing pair (eg, after an
// accept/reject cycle) updates the single row for that pair. Concurrent calls are last-writer-wins.
func (s *Store) Follow(ctx context.Context, form *PersonFollowerForm) (*models.PersonFollower, error) {
	ctx, span := tracer.Start(ctx, "Follow")
	defer span.End()

	now := s.timestamp()
	pending := form.Pending
	row := models.PersonActions{
		PersonID:      form.FollowerID,
		TargetID:      form.PersonID,
		Followed:      &now,
		FollowPending: &pending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePersonsExist(tx, form.PersonID, form.FollowerID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"followed", "follow_pending"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to write follow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	f := row.Follower()
	followsApplied.WithLabelValues(string(f.State)).Inc()
	return f, nil
}

// FollowAccepted is the pending -> accepted hook for the federation layer. No local person follow
// needs acceptance by a third party, so there is never a matching pending edge.
func (s *Store) FollowAccepted(ctx context.Context, personID, followerID models.PersonID) (*models.PersonFollower, error) {
	return nil, ErrNotFound
}

// Unfollow clears the follow columns of the edge. A missing or already-cleared edge is not an
// error; the returned count is zero.
func (s *Store) Unfollow(ctx context.Context, form *PersonFollowerForm) (UpleteCount, error) {
	ctx, span := tracer.Start(ctx, "Unfollow")
	defer span.End()

	var cnt UpleteCount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cnt, err = uplete(tx, form.FollowerID, form.PersonID, []string{"followed", "follow_pending"})
		return err
	})
	if err != nil {
		return UpleteCount{}, translateError(err)
	}

	if cnt.Total() > 0 {
		unfollowsApplied.Inc()
	}
	return cnt, nil
}

// ListFollowers returns every person with a current follow edge to the person. Order is not defined.
// Followers which have since been soft-deleted are included.
func (s *Store) ListFollowers(ctx context.Context, personID models.PersonID) ([]models.Person, error) {
	ctx, span := tracer.Start(ctx, "ListFollowers")
	defer span.End()

	out := []models.Person{}
	err := s.db.WithContext(ctx).
		Model(&models.Person{}).
		Joins("JOIN person_actions ON person_actions.person_id = person.id").
		Where("person_actions.target_id = ?", personID).
		Where("person_actions.followed IS NOT NULL").
		Select("person.*").
		Find(&out).Error
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

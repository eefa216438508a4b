package personstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
)

// deletedPersonChanges is the Active -> Deleted transition. It is the only place that sets
// deleted = true; the cleared set is every free-text, media and contact field.
func deletedPersonChanges(now time.Time) map[string]any {
	return map[string]any{
		"display_name":   nil,
		"avatar":         nil,
		"banner":         nil,
		"bio":            nil,
		"matrix_user_id": nil,
		"deleted":        true,
		"updated":        now,
	}
}

// DeleteAccount soft-deletes a person: the local account email is cleared and the person row is
// scrubbed and marked deleted, in one transaction. The row (with its id, ap_id, counters and
// timestamps) stays, so posts, comments and follow edges keep valid references.
func (s *Store) DeleteAccount(ctx context.Context, id models.PersonID) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "DeleteAccount")
	defer span.End()

	var out *models.Person
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LocalUser{}).Where("person_id = ?", id).Update("email", nil).Error; err != nil {
			return fmt.Errorf("failed to clear local user email: %w", err)
		}

		res := tx.Model(&models.Person{}).Where("id = ?", id).Updates(deletedPersonChanges(s.timestamp()))
		if res.Error != nil {
			return fmt.Errorf("failed to scrub person: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// rolls back the email change
			return ErrNotFound
		}

		var err error
		out, err = readAny(tx, id)
		return err
	})
	if err != nil {
		return nil, translateError(err)
	}

	personsDeleted.WithLabelValues("soft").Inc()
	s.evict(out.ApID)
	s.Logger.Info("deleted person account", "person", id, "apID", out.ApID)
	return out, nil
}

// Purge hard-deletes a person along with its local account, action edges in both directions and
// (if a ContentCleaner is configured) all content it authored. For administrative teardown only.
// Returns the number of person rows removed.
func (s *Store) Purge(ctx context.Context, id models.PersonID) (int64, error) {
	ctx, span := tracer.Start(ctx, "Purge")
	defer span.End()

	var n int64
	var apID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := readAny(tx, id)
		if err != nil {
			return err
		}
		apID = p.ApID

		if s.Content != nil {
			if err := s.Content.PurgeCreator(tx, id); err != nil {
				return fmt.Errorf("failed to purge content for person (%d): %w", id, err)
			}
		}
		if err := tx.Where("person_id = ? OR target_id = ?", id, id).Delete(&models.PersonActions{}).Error; err != nil {
			return fmt.Errorf("failed to delete person actions: %w", err)
		}
		if err := tx.Where("person_id = ?", id).Delete(&models.LocalUser{}).Error; err != nil {
			return fmt.Errorf("failed to delete local user: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Person{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translateError(err)
	}

	personsDeleted.WithLabelValues("purge").Inc()
	s.evict(apID)
	s.Logger.Warn("purged person", "person", id, "apID", apID)
	return n, nil
}

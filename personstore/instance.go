package personstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm/clause"
)

// ReadOrCreateInstance returns the instance row for the domain, creating it if needed.
func (s *Store) ReadOrCreateInstance(ctx context.Context, domain string) (*models.Instance, error) {
	ctx, span := tracer.Start(ctx, "ReadOrCreateInstance")
	defer span.End()

	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, fmt.Errorf("empty instance domain")
	}

	db := s.db.WithContext(ctx)
	inst := models.Instance{
		Domain:    domain,
		Published: s.timestamp(),
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&inst).Error; err != nil {
		return nil, translateError(fmt.Errorf("failed to create instance: %w", err))
	}

	var out models.Instance
	if err := db.Where("domain = ?", domain).First(&out).Error; err != nil {
		return nil, translateError(err)
	}
	return &out, nil
}

func (s *Store) DeleteInstance(ctx context.Context, id models.InstanceID) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Instance{})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

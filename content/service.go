// Package content owns communities, posts, comments and likes, and keeps the denormalized person
// counters (post/comment count and score) in sync with them. It stands in for database triggers:
// every counter change happens in the same transaction as the content change that causes it.
package content

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluesky-social/fedperson/models"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("content")

var ErrNotFound = errors.New("content not found")

type Service struct {
	db     *gorm.DB
	Logger *slog.Logger
	Clock  func() time.Time
}

func NewService(db *gorm.DB) (*Service, error) {
	svc := &Service{
		db:     db,
		Logger: slog.Default().With("system", "content"),
		Clock:  time.Now,
	}
	if err := svc.MigrateDatabase(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (svc *Service) MigrateDatabase() error {
	for _, m := range []any{
		models.Community{},
		models.Post{},
		models.Comment{},
		models.PostLike{},
		models.CommentLike{},
	} {
		if err := svc.db.AutoMigrate(m); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) timestamp() time.Time {
	return svc.Clock().UTC().Truncate(time.Microsecond)
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// bumpPerson adds delta to one of the person counter columns.
func bumpPerson(tx *gorm.DB, id models.PersonID, column string, delta int64) error {
	if delta == 0 {
		return nil
	}
	err := tx.Model(&models.Person{}).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("failed to adjust %s for person (%d): %w", column, id, err)
	}
	return nil
}

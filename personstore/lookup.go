package personstore

import (
	"context"
	"errors"
	"strings"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
)

// first runs the query and maps "no rows" to a nil result, for lookups where absence is normal.
func first(q *gorm.DB) (*models.Person, error) {
	var p models.Person
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &p, nil
}

// ReadFromExternalID looks up a non-deleted person by ap_id. Returns nil (and no error) if there is none.
//
// Only the ap_id to id mapping is cached; the row itself is always read, so counters written by
// content operations and concurrent deletes are never served stale.
func (s *Store) ReadFromExternalID(ctx context.Context, apID string) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "ReadFromExternalID")
	defer span.End()

	db := s.db.WithContext(ctx)
	if s.apIDCache != nil {
		if id, ok := s.apIDCache.Get(apID); ok {
			externalIDCacheHits.WithLabelValues("hit").Inc()
			p, err := first(db.Where("id = ? AND ap_id = ? AND deleted = ?", id, apID, false))
			if err != nil {
				return nil, err
			}
			if p != nil {
				return p, nil
			}
			// purged, deleted or re-keyed since the mapping was cached
			s.apIDCache.Remove(apID)
		} else {
			externalIDCacheHits.WithLabelValues("miss").Inc()
		}
	}

	p, err := first(db.Where("ap_id = ? AND deleted = ?", apID, false))
	if err != nil || p == nil {
		return nil, err
	}

	if s.apIDCache != nil {
		s.apIDCache.Add(apID, p.ID)
	}
	return p, nil
}

// ReadByLocalName finds a local person by name, case-insensitively. Moderation tooling passes
// includeDeleted to see deleted accounts. Returns nil if there is none.
func (s *Store) ReadByLocalName(ctx context.Context, name string, includeDeleted bool) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "ReadByLocalName")
	defer span.End()

	q := s.db.WithContext(ctx).
		Where("local = ?", true).
		Where("lower(name) = ?", strings.ToLower(name))
	if !includeDeleted {
		q = q.Where("deleted = ?", false)
	}
	return first(q)
}

// ReadByNameAndDomain resolves a fully qualified handle (name@domain). Returns nil if there is none.
func (s *Store) ReadByNameAndDomain(ctx context.Context, name, domain string) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "ReadByNameAndDomain")
	defer span.End()

	q := s.db.WithContext(ctx).
		Model(&models.Person{}).
		Joins("JOIN instance ON instance.id = person.instance_id").
		Where("lower(person.name) = ?", strings.ToLower(name)).
		Where("lower(instance.domain) = ?", strings.ToLower(domain)).
		Select("person.*")
	return first(q)
}

// CheckNameAvailable fails with ErrUsernameAlreadyExists if a local person already has this name,
// compared case-insensitively.
func (s *Store) CheckNameAvailable(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "CheckNameAvailable")
	defer span.End()

	var taken bool
	err := s.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM person WHERE lower(name) = ? AND local = ?)", strings.ToLower(name), true).
		Scan(&taken).Error
	if err != nil {
		return translateError(err)
	}
	if taken {
		return ErrUsernameAlreadyExists
	}
	return nil
}

package personstore

import (
	"context"
	"fmt"

	"github.com/bluesky-social/fedperson/models"
)

type LocalUserInsertForm struct {
	PersonID models.PersonID `json:"person_id"`
	Email    *string         `json:"email,omitempty"`
	Password string          `json:"password"`
}

// CreateLocalUser attaches an account record to an existing local person.
func (s *Store) CreateLocalUser(ctx context.Context, form *LocalUserInsertForm) (*models.LocalUser, error) {
	ctx, span := tracer.Start(ctx, "CreateLocalUser")
	defer span.End()

	p, err := readAny(s.db.WithContext(ctx), form.PersonID)
	if err != nil {
		return nil, translateError(err)
	}
	if !p.Local {
		return nil, fmt.Errorf("person is not local: %s", p.ApID)
	}

	hash, err := hashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	lu := models.LocalUser{
		PersonID:          form.PersonID,
		Email:             form.Email,
		PasswordEncrypted: hash,
		Published:         s.timestamp(),
	}
	if err := s.db.WithContext(ctx).Create(&lu).Error; err != nil {
		return nil, translateError(fmt.Errorf("failed to create local user: %w", err))
	}
	return &lu, nil
}

// ReadLocalUser returns the account record for a person, including deleted persons.
func (s *Store) ReadLocalUser(ctx context.Context, personID models.PersonID) (*models.LocalUser, error) {
	var lu models.LocalUser
	if err := s.db.WithContext(ctx).Where("person_id = ?", personID).First(&lu).Error; err != nil {
		return nil, translateError(err)
	}
	return &lu, nil
}

// CheckLocalUserPassword returns ErrInvalidPassword if the password does not match.
func (s *Store) CheckLocalUserPassword(ctx context.Context, personID models.PersonID, password string) error {
	lu, err := s.ReadLocalUser(ctx, personID)
	if err != nil {
		return err
	}
	return checkPassword(lu.PasswordEncrypted, password)
}

package personstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bluesky-social/fedperson/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersonInsertForm is used by both Create and Upsert. Name, PublicKey and InstanceID are required;
// nil optional fields fall back to column defaults on insert, and are left alone by Upsert when the
// row already exists.
type PersonInsertForm struct {
	Name       string            `json:"name"`
	PublicKey  string            `json:"public_key"`
	InstanceID models.InstanceID `json:"instance_id"`

	DisplayName     *string    `json:"display_name,omitempty"`
	Avatar          *string    `json:"avatar,omitempty"`
	Banner          *string    `json:"banner,omitempty"`
	Bio             *string    `json:"bio,omitempty"`
	MatrixUserID    *string    `json:"matrix_user_id,omitempty"`
	ApID            *string    `json:"ap_id,omitempty"`
	InboxURL        *string    `json:"inbox_url,omitempty"`
	Local           *bool      `json:"local,omitempty"`
	BotAccount      *bool      `json:"bot_account,omitempty"`
	Banned          *bool      `json:"banned,omitempty"`
	BanExpires      *time.Time `json:"ban_expires,omitempty"`
	Published       *time.Time `json:"published,omitempty"`
	Updated         *time.Time `json:"updated,omitempty"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	PrivateKey      *string    `json:"private_key,omitempty"`
}

func NewPersonInsertForm(name, publicKey string, instanceID models.InstanceID) *PersonInsertForm {
	return &PersonInsertForm{
		Name:       name,
		PublicKey:  publicKey,
		InstanceID: instanceID,
	}
}

const placeholderPrefix = "http://changeme.invalid/"

// placeholder for identities that have not been assigned a real URL yet
func placeholderURL() string {
	return placeholderPrefix + uuid.NewString()
}

func isPlaceholderURL(u string) bool {
	return strings.HasPrefix(u, placeholderPrefix)
}

func (f *PersonInsertForm) row(now time.Time) *models.Person {
	p := &models.Person{
		Name:            f.Name,
		PublicKey:       f.PublicKey,
		InstanceID:      f.InstanceID,
		DisplayName:     f.DisplayName,
		Avatar:          f.Avatar,
		Banner:          f.Banner,
		Bio:             f.Bio,
		MatrixUserID:    f.MatrixUserID,
		ApID:            placeholderURL(),
		InboxURL:        placeholderURL(),
		Local:           true,
		BanExpires:      f.BanExpires,
		Published:       now,
		Updated:         f.Updated,
		LastRefreshedAt: now,
		PrivateKey:      f.PrivateKey,
	}
	if f.ApID != nil {
		p.ApID = *f.ApID
	}
	if f.InboxURL != nil {
		p.InboxURL = *f.InboxURL
	}
	if f.Local != nil {
		p.Local = *f.Local
	}
	if f.BotAccount != nil {
		p.BotAccount = *f.BotAccount
	}
	if f.Banned != nil {
		p.Banned = *f.Banned
	}
	if f.Published != nil {
		p.Published = f.Published.UTC()
	}
	if f.LastRefreshedAt != nil {
		p.LastRefreshedAt = f.LastRefreshedAt.UTC()
	}
	return p
}

// columns which the form carries a value for; these overwrite an existing row on upsert
func (f *PersonInsertForm) columns() []string {
	cols := []string{"name", "public_key", "instance_id"}
	optional := []struct {
		col string
		set bool
	}{
		{"display_name", f.DisplayName != nil},
		{"avatar", f.Avatar != nil},
		{"banner", f.Banner != nil},
		{"bio", f.Bio != nil},
		{"matrix_user_id", f.MatrixUserID != nil},
		{"inbox_url", f.InboxURL != nil},
		{"local", f.Local != nil},
		{"bot_account", f.BotAccount != nil},
		{"banned", f.Banned != nil},
		{"ban_expires", f.BanExpires != nil},
		{"published", f.Published != nil},
		{"updated", f.Updated != nil},
		{"last_refreshed_at", f.LastRefreshedAt != nil},
		{"private_key", f.PrivateKey != nil},
	}
	for _, o := range optional {
		if o.set {
			cols = append(cols, o.col)
		}
	}
	return cols
}

// PersonUpdateForm only touches fields which are non-nil. It deliberately has no Deleted field:
// deletion goes through DeleteAccount.
type PersonUpdateForm struct {
	Name            *string            `json:"name,omitempty"`
	DisplayName     *string            `json:"display_name,omitempty"`
	Avatar          *string            `json:"avatar,omitempty"`
	Banner          *string            `json:"banner,omitempty"`
	Bio             *string            `json:"bio,omitempty"`
	MatrixUserID    *string            `json:"matrix_user_id,omitempty"`
	ApID            *string            `json:"ap_id,omitempty"`
	InboxURL        *string            `json:"inbox_url,omitempty"`
	Local           *bool              `json:"local,omitempty"`
	BotAccount      *bool              `json:"bot_account,omitempty"`
	Banned          *bool              `json:"banned,omitempty"`
	BanExpires      *time.Time         `json:"ban_expires,omitempty"`
	Updated         *time.Time         `json:"updated,omitempty"`
	LastRefreshedAt *time.Time         `json:"last_refreshed_at,omitempty"`
	PublicKey       *string            `json:"public_key,omitempty"`
	PrivateKey      *string            `json:"private_key,omitempty"`
	InstanceID      *models.InstanceID `json:"instance_id,omitempty"`
}

func (f *PersonUpdateForm) changes() map[string]any {
	m := map[string]any{}
	if f.Name != nil {
		m["name"] = *f.Name
	}
	if f.DisplayName != nil {
		m["display_name"] = *f.DisplayName
	}
	if f.Avatar != nil {
		m["avatar"] = *f.Avatar
	}
	if f.Banner != nil {
		m["banner"] = *f.Banner
	}
	if f.Bio != nil {
		m["bio"] = *f.Bio
	}
	if f.MatrixUserID != nil {
		m["matrix_user_id"] = *f.MatrixUserID
	}
	if f.ApID != nil {
		m["ap_id"] = *f.ApID
	}
	if f.InboxURL != nil {
		m["inbox_url"] = *f.InboxURL
	}
	if f.Local != nil {
		m["local"] = *f.Local
	}
	if f.BotAccount != nil {
		m["bot_account"] = *f.BotAccount
	}
	if f.Banned != nil {
		m["banned"] = *f.Banned
	}
	if f.BanExpires != nil {
		m["ban_expires"] = f.BanExpires.UTC()
	}
	if f.Updated != nil {
		m["updated"] = f.Updated.UTC()
	}
	if f.LastRefreshedAt != nil {
		m["last_refreshed_at"] = f.LastRefreshedAt.UTC()
	}
	if f.PublicKey != nil {
		m["public_key"] = *f.PublicKey
	}
	if f.PrivateKey != nil {
		m["private_key"] = *f.PrivateKey
	}
	if f.InstanceID != nil {
		m["instance_id"] = *f.InstanceID
	}
	return m
}

// Read returns the person only if it has not been deleted.
func (s *Store) Read(ctx context.Context, id models.PersonID) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "Read")
	defer span.End()

	var p models.Person
	if err := s.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&p).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// readAny returns the row regardless of deletion state.
func readAny(tx *gorm.DB, id models.PersonID) (*models.Person, error) {
	var p models.Person
	if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new person. Fails with ErrUniqueViolation if the ap_id is already taken.
func (s *Store) Create(ctx context.Context, form *PersonInsertForm) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	row := form.row(s.timestamp())
	db := s.db.WithContext(ctx)
	if err := db.Create(row).Error; err != nil {
		return nil, translateError(fmt.Errorf("failed to create person: %w", err))
	}

	p, err := readAny(db, row.ID)
	if err != nil {
		return nil, translateError(err)
	}

	personsCreated.Inc()
	s.evict(p.ApID)
	return p, nil
}

// Update applies the non-nil fields of the form. Fails with ErrNotFound if the person does not exist.
// The ap_id may only replace a placeholder; changing an assigned one fails with ErrExternalIDChanged.
func (s *Store) Update(ctx context.Context, id models.PersonID, form *PersonUpdateForm) (*models.Person, error) {
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()

	var prev, out *models.Person
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		prev, err = readAny(tx, id)
		if err != nil {
			return err
		}
		if form.ApID != nil && *form.ApID != prev.ApID && !isPlaceholderURL(prev.ApID) {
			return ErrExternalIDChanged
		}
		if changes := form.changes(); len(changes) > 0 {
			if err := tx.Model(&models.Person{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return fmt.Errorf("failed to update person: %w", err)
			}
		}
		out, err = readAny(tx, id)
		return err
	})
	if err != nil {
		return nil, translateError(err)
	}

	s.evict(prev.ApID, out.ApID)
	return out, nil
}

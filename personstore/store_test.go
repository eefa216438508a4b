package personstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bluesky-social/fedperson/content"
	"github.com/bluesky-social/fedperson/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqldb, err := db.DB(); err == nil {
			_ = sqldb.Close()
		}
	})
	return db
}

// testStore returns a store and content service sharing one database; purges go through content.
func testStore(t *testing.T) (*Store, *content.Service) {
	t.Helper()

	db := testDB(t)
	s, err := NewStore(db, &StoreConfig{
		Settings:  Settings{Hostname: "my_domain.tld", TLSEnabled: true},
		CacheSize: 100,
	})
	require.NoError(t, err)

	cs, err := content.NewService(db)
	require.NoError(t, err)
	s.Content = cs
	return s, cs
}

func testInstance(t *testing.T, s *Store) *models.Instance {
	t.Helper()
	inst, err := s.ReadOrCreateInstance(context.Background(), "my_domain.tld")
	require.NoError(t, err)
	return inst
}

func testPerson(t *testing.T, s *Store, inst *models.Instance, name string) *models.Person {
	t.Helper()
	p, err := s.Create(context.Background(), NewPersonInsertForm(name, "pubkey", inst.ID))
	require.NoError(t, err)
	return p
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestCrud(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s, _ := testStore(t)

	inst := testInstance(t, s)

	inserted, err := s.Create(ctx, NewPersonInsertForm("holly", "pubkey", inst.ID))
	require.NoError(err)

	expected := models.Person{
		ID:              inserted.ID,
		Name:            "holly",
		ApID:            inserted.ApID,
		InboxURL:        inserted.InboxURL,
		Local:           true,
		Published:       inserted.Published,
		LastRefreshedAt: inserted.Published,
		PublicKey:       "pubkey",
		InstanceID:      inst.ID,
	}

	read, err := s.Read(ctx, inserted.ID)
	require.NoError(err)

	updated, err := s.Update(ctx, inserted.ID, &PersonUpdateForm{ApID: strp(inserted.ApID)})
	require.NoError(err)

	assert.Equal(expected, *inserted)
	assert.Equal(expected, *read)
	assert.Equal(expected, *updated)
	assert.Equal(models.PersonActive, read.State())

	n, err := s.Purge(ctx, inserted.ID)
	require.NoError(err)
	assert.Equal(int64(1), n)

	n, err = s.DeleteInstance(ctx, inst.ID)
	require.NoError(err)
	assert.Equal(int64(1), n)
}

func TestCreateDuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)

	form := NewPersonInsertForm("holly", "pubkey", inst.ID)
	form.ApID = strp("https://remote.example/u/holly")
	_, err := s.Create(ctx, form)
	require.NoError(t, err)

	_, err = s.Create(ctx, form)
	assert.ErrorIs(t, err, ErrUniqueViolation)
}

func TestUpdate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)
	p := testPerson(t, s, inst, "holly")

	updated, err := s.Update(ctx, p.ID, &PersonUpdateForm{
		DisplayName: strp("Holly"),
		BotAccount:  boolp(true),
	})
	assert.NoError(err)
	assert.Equal("Holly", *updated.DisplayName)
	assert.True(updated.BotAccount)
	// untouched fields survive
	assert.Equal("holly", updated.Name)
	assert.Equal(p.ApID, updated.ApID)

	// empty form is a no-op, not an error
	same, err := s.Update(ctx, p.ID, &PersonUpdateForm{})
	assert.NoError(err)
	assert.Equal(*updated, *same)

	_, err = s.Update(ctx, 99999, &PersonUpdateForm{DisplayName: strp("nobody")})
	assert.ErrorIs(err, ErrNotFound)
}

func TestReadMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	_, err := s.Read(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := s.ReadFromExternalID(ctx, "https://nowhere.example/u/nobody")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestLocalURL(t *testing.T) {
	assert := assert.New(t)

	u, err := LocalURL("holly", &Settings{Hostname: "example.com", TLSEnabled: true})
	assert.NoError(err)
	assert.Equal("https://example.com/u/holly", u)

	u, err = LocalURL("holly", &Settings{Hostname: "localhost:8536"})
	assert.NoError(err)
	assert.Equal("http://localhost:8536/u/holly", u)

	_, err = LocalURL("bad%zz", &Settings{Hostname: "example.com", TLSEnabled: true})
	assert.ErrorIs(err, ErrInvalidURL)

	_, err = LocalURL("holly", &Settings{})
	assert.ErrorIs(err, ErrInvalidURL)

	s, _ := testStore(t)
	u, err = s.LocalURL("holly")
	assert.NoError(err)
	assert.Equal("https://my_domain.tld/u/holly", u)
}

func TestLocalUserPassword(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)
	p := testPerson(t, s, inst, "holly")

	lu, err := s.CreateLocalUser(ctx, &LocalUserInsertForm{PersonID: p.ID, Email: strp("holly@example.com"), Password: "hunter22"})
	assert.NoError(err)
	assert.NotContains(lu.PasswordEncrypted, "hunter22")

	assert.NoError(s.CheckLocalUserPassword(ctx, p.ID, "hunter22"))
	assert.ErrorIs(s.CheckLocalUserPassword(ctx, p.ID, "hunter23"), ErrInvalidPassword)

	remote := NewPersonInsertForm("remote", "pubkey", inst.ID)
	remote.Local = boolp(false)
	rp, err := s.Create(ctx, remote)
	assert.NoError(err)
	_, err = s.CreateLocalUser(ctx, &LocalUserInsertForm{PersonID: rp.ID, Password: "x"})
	assert.Error(err)
}

func TestHealthcheck(t *testing.T) {
	s, _ := testStore(t)
	assert.NoError(t, s.Healthcheck(context.Background()))
}

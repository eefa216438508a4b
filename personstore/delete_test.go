package personstore

import (
	"context"
	"testing"
	"time"

	"github.com/bluesky-social/fedperson/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteAccount(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)

	form := NewPersonInsertForm("Dana", "pubkey", inst.ID)
	form.DisplayName = strp("Dana D")
	form.Avatar = strp("https://my_domain.tld/pictrs/avatar.png")
	form.Banner = strp("https://my_domain.tld/pictrs/banner.png")
	form.Bio = strp("hello there")
	form.MatrixUserID = strp("@dana:matrix.org")
	p, err := s.Create(ctx, form)
	require.NoError(err)

	_, err = s.CreateLocalUser(ctx, &LocalUserInsertForm{PersonID: p.ID, Email: strp("dana@example.com"), Password: "hunter22"})
	require.NoError(err)

	// warm the external id cache, which the delete must invalidate
	cached, err := s.ReadFromExternalID(ctx, p.ApID)
	require.NoError(err)
	require.NotNil(cached)

	before := time.Now().Add(-time.Second)
	deleted, err := s.DeleteAccount(ctx, p.ID)
	require.NoError(err)
	assert.Equal(models.PersonDeleted, deleted.State())

	_, err = s.Read(ctx, p.ID)
	assert.ErrorIs(err, ErrNotFound)

	gone, err := s.ReadFromExternalID(ctx, p.ApID)
	assert.NoError(err)
	assert.Nil(gone)

	hidden, err := s.ReadByLocalName(ctx, "dana", false)
	assert.NoError(err)
	assert.Nil(hidden)

	row, err := s.ReadByLocalName(ctx, "dana", true)
	require.NoError(err)
	require.NotNil(row)
	assert.True(row.Deleted)
	assert.Nil(row.DisplayName)
	assert.Nil(row.Avatar)
	assert.Nil(row.Banner)
	assert.Nil(row.Bio)
	assert.Nil(row.MatrixUserID)
	require.NotNil(row.Updated)
	assert.True(row.Updated.After(before))

	// identity, counters and timestamps are kept
	assert.Equal(p.ID, row.ID)
	assert.Equal(p.ApID, row.ApID)
	assert.Equal("Dana", row.Name)
	assert.True(p.Published.Equal(row.Published))
	assert.Equal(p.PostCount, row.PostCount)
	assert.Equal(p.CommentScore, row.CommentScore)

	lu, err := s.ReadLocalUser(ctx, p.ID)
	require.NoError(err)
	assert.Nil(lu.Email)
}

func TestDeleteAccountMissing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := testStore(t)

	// an orphaned account row; the failed delete must not clear its email
	orphan := models.LocalUser{
		PersonID:          424242,
		Email:             strp("orphan@example.com"),
		PasswordEncrypted: "x:y",
		Published:         time.Now().UTC(),
	}
	assert.NoError(s.db.Create(&orphan).Error)

	_, err := s.DeleteAccount(ctx, 424242)
	assert.ErrorIs(err, ErrNotFound)

	lu, err := s.ReadLocalUser(ctx, 424242)
	assert.NoError(err)
	if assert.NotNil(lu.Email) {
		assert.Equal("orphan@example.com", *lu.Email)
	}
}

func TestDeleteAccountWithoutLocalUser(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)

	remote := NewPersonInsertForm("remote", "pubkey", inst.ID)
	remote.Local = boolp(false)
	remote.DisplayName = strp("Remote R")
	p, err := s.Create(ctx, remote)
	require.NoError(t, err)

	deleted, err := s.DeleteAccount(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Nil(t, deleted.DisplayName)
}

func TestPurgeRemovesEdgesAndAccount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)

	a := testPerson(t, s, inst, "erich")
	b := testPerson(t, s, inst, "michele")
	_, err := s.Follow(ctx, &PersonFollowerForm{PersonID: a.ID, FollowerID: b.ID})
	assert.NoError(err)
	_, err = s.Follow(ctx, &PersonFollowerForm{PersonID: b.ID, FollowerID: a.ID})
	assert.NoError(err)
	_, err = s.CreateLocalUser(ctx, &LocalUserInsertForm{PersonID: a.ID, Password: "hunter22"})
	assert.NoError(err)

	n, err := s.Purge(ctx, a.ID)
	assert.NoError(err)
	assert.Equal(int64(1), n)

	followers, err := s.ListFollowers(ctx, b.ID)
	assert.NoError(err)
	assert.Empty(followers)

	var edges int64
	assert.NoError(s.db.Model(&models.PersonActions{}).Count(&edges).Error)
	assert.Equal(int64(0), edges)

	_, err = s.ReadLocalUser(ctx, a.ID)
	assert.ErrorIs(err, ErrNotFound)

	_, err = s.Purge(ctx, a.ID)
	assert.ErrorIs(err, ErrNotFound)
}

package personstore

import (
	"context"
	"testing"

	"github.com/bluesky-social/fedperson/content"
	"github.com/bluesky-social/fedperson/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckNameAvailable(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)

	assert.NoError(s.CheckNameAvailable(ctx, "holly"))

	testPerson(t, s, inst, "Holly")
	for _, name := range []string{"holly", "HOLLY", "Holly"} {
		err := s.CheckNameAvailable(ctx, name)
		assert.ErrorIs(err, ErrUsernameAlreadyExists, name)
		assert.ErrorIs(err, ErrUniqueViolation, name)
	}

	// remote people do not reserve local names
	remote := NewPersonInsertForm("RemoteGuy", "pubkey", inst.ID)
	remote.Local = boolp(false)
	_, err := s.Create(ctx, remote)
	require.NoError(t, err)
	assert.NoError(s.CheckNameAvailable(ctx, "remoteguy"))
}

func TestUpsert(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s, _ := testStore(t)
	inst, err := s.ReadOrCreateInstance(ctx, "remote.tld")
	require.NoError(err)

	apID := "https://remote.tld/u/alice"
	form := NewPersonInsertForm("alice", "pubkey-1", inst.ID)
	form.ApID = &apID
	form.Local = boolp(false)
	form.DisplayName = strp("Alice")
	form.Bio = strp("first bio")

	first, err := s.Upsert(ctx, form)
	require.NoError(err)
	assert.Equal("Alice", *first.DisplayName)
	assert.False(first.Local)

	// warm the cache so the second upsert has something to invalidate
	cached, err := s.ReadFromExternalID(ctx, apID)
	require.NoError(err)
	assert.Equal(first.ID, cached.ID)

	second := NewPersonInsertForm("alice", "pubkey-2", inst.ID)
	second.ApID = &apID
	second.Local = boolp(false)
	second.DisplayName = strp("Alice Again")

	out, err := s.Upsert(ctx, second)
	require.NoError(err)
	assert.Equal(first.ID, out.ID)
	assert.Equal("Alice Again", *out.DisplayName)
	assert.Equal("pubkey-2", out.PublicKey)
	require.NotNil(out.Bio)
	assert.Equal("first bio", *out.Bio)
	assert.True(first.Published.Equal(out.Published))

	var rows int64
	assert.NoError(s.db.Model(&models.Person{}).Where("ap_id = ?", apID).Count(&rows).Error)
	assert.Equal(int64(1), rows)

	fresh, err := s.ReadFromExternalID(ctx, apID)
	require.NoError(err)
	assert.Equal("Alice Again", *fresh.DisplayName)
}

func TestUpsertRequiresExternalID(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	inst := testInstance(t, s)

	_, err := s.Upsert(ctx, NewPersonInsertForm("alice", "pubkey", inst.ID))
	assert.ErrorIs(t, err, ErrMissingExternalID)

	form := NewPersonInsertForm("alice", "pubkey", inst.ID)
	form.ApID = strp("")
	_, err = s.Upsert(ctx, form)
	assert.ErrorIs(t, err, ErrMissingExternalID)
}

func TestReadByNameAndDomain(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s, _ := testStore(t)

	local := testInstance(t, s)
	remote, err := s.ReadOrCreateInstance(ctx, " Remote.TLD ")
	require.NoError(err)
	assert.Equal("remote.tld", remote.Domain)

	again, err := s.ReadOrCreateInstance(ctx, "remote.tld")
	require.NoError(err)
	assert.Equal(remote.ID, again.ID)

	form := NewPersonInsertForm("Alice", "pubkey", remote.ID)
	form.Local = boolp(false)
	alice, err := s.Create(ctx, form)
	require.NoError(err)
	testPerson(t, s, local, "alice")

	found, err := s.ReadByNameAndDomain(ctx, "alice", "REMOTE.tld")
	require.NoError(err)
	require.NotNil(found)
	assert.Equal(alice.ID, found.ID)

	missing, err := s.ReadByNameAndDomain(ctx, "alice", "elsewhere.tld")
	assert.NoError(err)
	assert.Nil(missing)

	// the local namesake is not visible through the remote lookup and vice versa
	byLocal, err := s.ReadByLocalName(ctx, "ALICE", false)
	require.NoError(err)
	require.NotNil(byLocal)
	assert.NotEqual(alice.ID, byLocal.ID)
}

func TestReadFromExternalIDMissing(t *testing.T) {
	s, _ := testStore(t)
	p, err := s.ReadFromExternalID(context.Background(), "https://nowhere.tld/u/nobody")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestListLocalCommunityIDs(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	s, cs := testStore(t)
	inst := testInstance(t, s)

	author := testPerson(t, s, inst, "author")
	other := testPerson(t, s, inst, "other")

	newCommunity := func(name string, local bool) *models.Community {
		form := content.NewCommunityInsertForm(inst.ID, name, name, "pubkey")
		form.Local = &local
		c, err := cs.CreateCommunity(ctx, form)
		require.NoError(err)
		return c
	}
	posted := newCommunity("posted", true)
	commented := newCommunity("commented", true)
	remote := newCommunity("remote", false)
	removed := newCommunity("removed", true)
	_, err := cs.UpdateCommunity(ctx, removed.ID, &content.CommunityUpdateForm{Removed: boolp(true)})
	require.NoError(err)

	// posted shows up through both branches and must come back once
	own, err := cs.CreatePost(ctx, content.NewPostInsertForm("own", author.ID, posted.ID))
	require.NoError(err)
	_, err = cs.CreateComment(ctx, content.NewCommentInsertForm(author.ID, own.ID, "self reply"), nil)
	require.NoError(err)

	theirs, err := cs.CreatePost(ctx, content.NewPostInsertForm("theirs", other.ID, commented.ID))
	require.NoError(err)
	_, err = cs.CreateComment(ctx, content.NewCommentInsertForm(author.ID, theirs.ID, "hi"), nil)
	require.NoError(err)

	for _, c := range []*models.Community{remote, removed} {
		_, err := cs.CreatePost(ctx, content.NewPostInsertForm("hidden", author.ID, c.ID))
		require.NoError(err)
	}

	ids, err := s.ListLocalCommunityIDs(ctx, author.ID)
	require.NoError(err)
	assert.ElementsMatch([]models.CommunityID{posted.ID, commented.ID}, ids)

	none, err := s.ListLocalCommunityIDs(ctx, 9999)
	assert.NoError(err)
	assert.NotNil(none)
	assert.Empty(none)
}

package personstore

import (
	"context"

	"github.com/bluesky-social/fedperson/models"
)

// both branches apply the same visibility predicates; UNION (not UNION ALL) de-duplicates
const localCommunityIDsQuery = `
SELECT community.id FROM comment
	JOIN post ON post.id = comment.post_id
	JOIN community ON community.id = post.community_id
	WHERE community.local = ? AND community.deleted = ? AND community.removed = ?
	AND comment.creator_id = ?
UNION
SELECT community.id FROM post
	JOIN community ON community.id = post.community_id
	WHERE community.local = ? AND community.deleted = ? AND community.removed = ?
	AND post.creator_id = ?
`

// ListLocalCommunityIDs returns the visible local communities a person has posted or commented in.
func (s *Store) ListLocalCommunityIDs(ctx context.Context, creatorID models.PersonID) ([]models.CommunityID, error) {
	ctx, span := tracer.Start(ctx, "ListLocalCommunityIDs")
	defer span.End()

	ids := []models.CommunityID{}
	err := s.db.WithContext(ctx).
		Raw(localCommunityIDsQuery, true, false, false, creatorID, true, false, false, creatorID).
		Scan(&ids).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

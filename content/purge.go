package content

import (
	"errors"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
)

// PurgeCreator removes everything a person authored or voted on, unwinding the counters of every
// other person involved. It runs inside the caller's transaction.
func (svc *Service) PurgeCreator(tx *gorm.DB, creatorID models.PersonID) error {
	var postLikes []models.PostLike
	if err := tx.Where("person_id = ?", creatorID).Find(&postLikes).Error; err != nil {
		return err
	}
	for _, l := range postLikes {
		var p models.Post
		if err := tx.Where("id = ?", l.PostID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		if err := bumpPerson(tx, p.CreatorID, "post_score", -int64(l.Score)); err != nil {
			return err
		}
	}
	if err := tx.Where("person_id = ?", creatorID).Delete(&models.PostLike{}).Error; err != nil {
		return err
	}

	var commentLikes []models.CommentLike
	if err := tx.Where("person_id = ?", creatorID).Find(&commentLikes).Error; err != nil {
		return err
	}
	for _, l := range commentLikes {
		var c models.Comment
		if err := tx.Where("id = ?", l.CommentID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		if err := bumpPerson(tx, c.CreatorID, "comment_score", -int64(l.Score)); err != nil {
			return err
		}
	}
	if err := tx.Where("person_id = ?", creatorID).Delete(&models.CommentLike{}).Error; err != nil {
		return err
	}

	var comments []models.Comment
	if err := tx.Where("creator_id = ?", creatorID).Find(&comments).Error; err != nil {
		return err
	}
	for i := range comments {
		if err := deleteComment(tx, &comments[i]); err != nil {
			return err
		}
	}

	var posts []models.Post
	if err := tx.Where("creator_id = ?", creatorID).Find(&posts).Error; err != nil {
		return err
	}
	for i := range posts {
		if err := deletePost(tx, &posts[i]); err != nil {
			return err
		}
	}

	svc.Logger.Info("purged content for person", "person", creatorID, "posts", len(posts), "comments", len(comments))
	return nil
}

package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentInsertForm struct {
	CreatorID models.PersonID `json:"creator_id"`
	PostID    models.PostID   `json:"post_id"`
	Content   string          `json:"content"`
}

func NewCommentInsertForm(creatorID models.PersonID, postID models.PostID, content string) *CommentInsertForm {
	return &CommentInsertForm{CreatorID: creatorID, PostID: postID, Content: content}
}

type CommentUpdateForm struct {
	Content *string `json:"content,omitempty"`
	Removed *bool   `json:"removed,omitempty"`
	Deleted *bool   `json:"deleted,omitempty"`
}

// a comment counts towards its creator's comment_count while neither removed nor deleted
func counted(c *models.Comment) bool {
	return !c.Removed && !c.Deleted
}

// CreateComment inserts a top-level comment, or a reply when parentPath is given.
func (svc *Service) CreateComment(ctx context.Context, form *CommentInsertForm, parentPath *string) (*models.Comment, error) {
	ctx, span := tracer.Start(ctx, "CreateComment")
	defer span.End()

	c := models.Comment{
		CreatorID: form.CreatorID,
		PostID:    form.PostID,
		Content:   form.Content,
		Path:      "0",
		Published: svc.timestamp(),
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", form.PostID).First(&models.Post{}).Error; err != nil {
			return wrapNotFound(err)
		}
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		prefix := "0"
		if parentPath != nil {
			prefix = *parentPath
		}
		c.Path = fmt.Sprintf("%s.%d", prefix, c.ID)
		if err := tx.Model(&models.Comment{}).Where("id = ?", c.ID).Update("path", c.Path).Error; err != nil {
			return err
		}
		return bumpPerson(tx, c.CreatorID, "comment_count", 1)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComment applies content and moderation changes. Flipping removed or deleted moves the
// comment in or out of its creator's comment_count.
//
// comment_score is not unwound when a comment is removed; only deleting the comment (which deletes
// its likes) takes its score back out. Owners of the aggregates know about this gap.
func (svc *Service) UpdateComment(ctx context.Context, id models.CommentID, form *CommentUpdateForm) (*models.Comment, error) {
	ctx, span := tracer.Start(ctx, "UpdateComment")
	defer span.End()

	var out models.Comment
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev models.Comment
		if err := tx.Where("id = ?", id).First(&prev).Error; err != nil {
			return wrapNotFound(err)
		}

		changes := map[string]any{}
		if form.Content != nil {
			changes["content"] = *form.Content
		}
		if form.Removed != nil {
			changes["removed"] = *form.Removed
		}
		if form.Deleted != nil {
			changes["deleted"] = *form.Deleted
		}
		if len(changes) > 0 {
			if err := tx.Model(&models.Comment{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}

		switch {
		case counted(&prev) && !counted(&out):
			return bumpPerson(tx, out.CreatorID, "comment_count", -1)
		case !counted(&prev) && counted(&out):
			return bumpPerson(tx, out.CreatorID, "comment_count", 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (svc *Service) DeleteComment(ctx context.Context, id models.CommentID) (int64, error) {
	ctx, span := tracer.Start(ctx, "DeleteComment")
	defer span.End()

	var n int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
			return wrapNotFound(err)
		}
		if err := deleteComment(tx, &c); err != nil {
			return err
		}
		n = 1
		return nil
	})
	return n, err
}

func deleteComment(tx *gorm.DB, c *models.Comment) error {
	var score int64
	if err := tx.Model(&models.CommentLike{}).Where("comment_id = ?", c.ID).Select("COALESCE(SUM(score), 0)").Scan(&score).Error; err != nil {
		return err
	}
	if err := tx.Where("comment_id = ?", c.ID).Delete(&models.CommentLike{}).Error; err != nil {
		return err
	}
	if err := bumpPerson(tx, c.CreatorID, "comment_score", -score); err != nil {
		return err
	}

	if err := tx.Where("id = ?", c.ID).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("failed to delete comment (%d): %w", c.ID, err)
	}
	if counted(c) {
		return bumpPerson(tx, c.CreatorID, "comment_count", -1)
	}
	return nil
}

type CommentLikeForm struct {
	CommentID models.CommentID `json:"comment_id"`
	PersonID  models.PersonID  `json:"person_id"`
	Score     int16            `json:"score"`
}

func (svc *Service) LikeComment(ctx context.Context, form *CommentLikeForm) (*models.CommentLike, error) {
	ctx, span := tracer.Start(ctx, "LikeComment")
	defer span.End()

	like := models.CommentLike{
		CommentID: form.CommentID,
		PersonID:  form.PersonID,
		Score:     form.Score,
		Published: svc.timestamp(),
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Where("id = ?", form.CommentID).First(&c).Error; err != nil {
			return wrapNotFound(err)
		}
		var prev int64
		var old models.CommentLike
		err := tx.Where("comment_id = ? AND person_id = ?", form.CommentID, form.PersonID).First(&old).Error
		if err == nil {
			prev = int64(old.Score)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "person_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "published"}),
		}).Create(&like).Error
		if err != nil {
			return fmt.Errorf("failed to write comment like: %w", err)
		}
		return bumpPerson(tx, c.CreatorID, "comment_score", int64(form.Score)-prev)
	})
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (svc *Service) RemoveCommentLike(ctx context.Context, personID models.PersonID, commentID models.CommentID) (int64, error) {
	ctx, span := tracer.Start(ctx, "RemoveCommentLike")
	defer span.End()

	var n int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.CommentLike
		if err := tx.Where("comment_id = ? AND person_id = ?", commentID, personID).First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		var c models.Comment
		if err := tx.Where("id = ?", commentID).First(&c).Error; err != nil {
			return wrapNotFound(err)
		}
		res := tx.Where("comment_id = ? AND person_id = ?", commentID, personID).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return bumpPerson(tx, c.CreatorID, "comment_score", -int64(old.Score))
	})
	return n, err
}

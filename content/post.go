package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostInsertForm struct {
	Name        string             `json:"name"`
	CreatorID   models.PersonID    `json:"creator_id"`
	CommunityID models.CommunityID `json:"community_id"`
}

func NewPostInsertForm(name string, creatorID models.PersonID, communityID models.CommunityID) *PostInsertForm {
	return &PostInsertForm{
		Name:        name,
		CreatorID:   creatorID,
		CommunityID: communityID,
	}
}

func (svc *Service) CreatePost(ctx context.Context, form *PostInsertForm) (*models.Post, error) {
	ctx, span := tracer.Start(ctx, "CreatePost")
	defer span.End()

	p := models.Post{
		Name:        form.Name,
		CreatorID:   form.CreatorID,
		CommunityID: form.CommunityID,
		Published:   svc.timestamp(),
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		return bumpPerson(tx, p.CreatorID, "post_count", 1)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (svc *Service) DeletePost(ctx context.Context, id models.PostID) (int64, error) {
	ctx, span := tracer.Start(ctx, "DeletePost")
	defer span.End()

	var n int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return wrapNotFound(err)
		}
		if err := deletePost(tx, &p); err != nil {
			return err
		}
		n = 1
		return nil
	})
	return n, err
}

// deletePost removes a post with its comments and likes, unwinding every counter they contributed.
func deletePost(tx *gorm.DB, p *models.Post) error {
	var comments []models.Comment
	if err := tx.Where("post_id = ?", p.ID).Find(&comments).Error; err != nil {
		return err
	}
	for i := range comments {
		if err := deleteComment(tx, &comments[i]); err != nil {
			return err
		}
	}

	var score int64
	if err := tx.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Select("COALESCE(SUM(score), 0)").Scan(&score).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", p.ID).Delete(&models.PostLike{}).Error; err != nil {
		return err
	}
	if err := bumpPerson(tx, p.CreatorID, "post_score", -score); err != nil {
		return err
	}

	if err := tx.Where("id = ?", p.ID).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("failed to delete post (%d): %w", p.ID, err)
	}
	return bumpPerson(tx, p.CreatorID, "post_count", -1)
}

type PostLikeForm struct {
	PostID   models.PostID   `json:"post_id"`
	PersonID models.PersonID `json:"person_id"`
	Score    int16           `json:"score"`
}

func NewPostLikeForm(postID models.PostID, personID models.PersonID, score int16) *PostLikeForm {
	return &PostLikeForm{PostID: postID, PersonID: personID, Score: score}
}

// LikePost records (or replaces) a vote, crediting the difference to the post creator's score.
func (svc *Service) LikePost(ctx context.Context, form *PostLikeForm) (*models.PostLike, error) {
	ctx, span := tracer.Start(ctx, "LikePost")
	defer span.End()

	like := models.PostLike{
		PostID:    form.PostID,
		PersonID:  form.PersonID,
		Score:     form.Score,
		Published: svc.timestamp(),
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.Where("id = ?", form.PostID).First(&p).Error; err != nil {
			return wrapNotFound(err)
		}
		var prev int64
		var old models.PostLike
		err := tx.Where("post_id = ? AND person_id = ?", form.PostID, form.PersonID).First(&old).Error
		if err == nil {
			prev = int64(old.Score)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "person_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "published"}),
		}).Create(&like).Error
		if err != nil {
			return fmt.Errorf("failed to write post like: %w", err)
		}
		return bumpPerson(tx, p.CreatorID, "post_score", int64(form.Score)-prev)
	})
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (svc *Service) RemovePostLike(ctx context.Context, personID models.PersonID, postID models.PostID) (int64, error) {
	ctx, span := tracer.Start(ctx, "RemovePostLike")
	defer span.End()

	var n int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.PostLike
		if err := tx.Where("post_id = ? AND person_id = ?", postID, personID).First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		var p models.Post
		if err := tx.Where("id = ?", postID).First(&p).Error; err != nil {
			return wrapNotFound(err)
		}
		res := tx.Where("post_id = ? AND person_id = ?", postID, personID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return bumpPerson(tx, p.CreatorID, "post_score", -int64(old.Score))
	})
	return n, err
}

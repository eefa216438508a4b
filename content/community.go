package content

import (
	"context"
	"fmt"

	"github.com/bluesky-social/fedperson/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommunityInsertForm struct {
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	PublicKey  string            `json:"public_key"`
	InstanceID models.InstanceID `json:"instance_id"`
	ApID       *string           `json:"ap_id,omitempty"`
	Local      *bool             `json:"local,omitempty"`
}

func NewCommunityInsertForm(instanceID models.InstanceID, name, title, publicKey string) *CommunityInsertForm {
	return &CommunityInsertForm{
		Name:       name,
		Title:      title,
		PublicKey:  publicKey,
		InstanceID: instanceID,
	}
}

type CommunityUpdateForm struct {
	Title   *string `json:"title,omitempty"`
	Deleted *bool   `json:"deleted,omitempty"`
	Removed *bool   `json:"removed,omitempty"`
}

func (svc *Service) CreateCommunity(ctx context.Context, form *CommunityInsertForm) (*models.Community, error) {
	ctx, span := tracer.Start(ctx, "CreateCommunity")
	defer span.End()

	c := models.Community{
		Name:       form.Name,
		Title:      form.Title,
		PublicKey:  form.PublicKey,
		InstanceID: form.InstanceID,
		ApID:       "http://changeme.invalid/" + uuid.NewString(),
		Local:      true,
		Published:  svc.timestamp(),
	}
	if form.ApID != nil {
		c.ApID = *form.ApID
	}
	if form.Local != nil {
		c.Local = *form.Local
	}
	if err := svc.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}
	return &c, nil
}

func (svc *Service) UpdateCommunity(ctx context.Context, id models.CommunityID, form *CommunityUpdateForm) (*models.Community, error) {
	changes := map[string]any{}
	if form.Title != nil {
		changes["title"] = *form.Title
	}
	if form.Deleted != nil {
		changes["deleted"] = *form.Deleted
	}
	if form.Removed != nil {
		changes["removed"] = *form.Removed
	}

	db := svc.db.WithContext(ctx)
	if len(changes) > 0 {
		if err := db.Model(&models.Community{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, err
		}
	}
	var c models.Community
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &c, nil
}

// DeleteCommunity removes the community and, through deletePost, all of its posts and comments.
func (svc *Service) DeleteCommunity(ctx context.Context, id models.CommunityID) (int64, error) {
	ctx, span := tracer.Start(ctx, "DeleteCommunity")
	defer span.End()

	var n int64
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts []models.Post
		if err := tx.Where("community_id = ?", id).Find(&posts).Error; err != nil {
			return err
		}
		for i := range posts {
			if err := deletePost(tx, &posts[i]); err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Community{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return nil
	})
	return n, err
}

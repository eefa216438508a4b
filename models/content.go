package models

import (
	"time"
)

type Community struct {
	ID         CommunityID `gorm:"column:id;primarykey" json:"id"`
	Name       string      `gorm:"column:name;not null" json:"name"`
	Title      string      `gorm:"column:title;not null" json:"title"`
	ApID       string      `gorm:"column:ap_id;uniqueIndex;not null" json:"ap_id"`
	PublicKey  string      `gorm:"column:public_key;not null" json:"-"`
	InstanceID InstanceID  `gorm:"column:instance_id;not null" json:"instance_id"`
	Local      bool        `gorm:"column:local;not null" json:"local"`
	Deleted    bool        `gorm:"column:deleted;not null" json:"deleted"`
	Removed    bool        `gorm:"column:removed;not null" json:"removed"`
	Published  time.Time   `gorm:"column:published;not null" json:"published"`
}

func (Community) TableName() string {
	return "community"
}

type Post struct {
	ID          PostID      `gorm:"column:id;primarykey"`
	Name        string      `gorm:"column:name;not null"`
	CreatorID   PersonID    `gorm:"column:creator_id;not null;index"`
	CommunityID CommunityID `gorm:"column:community_id;not null;index"`
	Removed     bool        `gorm:"column:removed;not null"`
	Deleted     bool        `gorm:"column:deleted;not null"`
	Published   time.Time   `gorm:"column:published;not null"`
}

func (Post) TableName() string {
	return "post"
}

type Comment struct {
	ID        CommentID `gorm:"column:id;primarykey"`
	CreatorID PersonID  `gorm:"column:creator_id;not null;index"`
	PostID    PostID    `gorm:"column:post_id;not null;index"`
	Content   string    `gorm:"column:content;not null"`

	// dotted materialized path of comment ids from the root, prefixed with "0"; eg "0.12.15"
	Path string `gorm:"column:path;not null"`

	Removed   bool      `gorm:"column:removed;not null"`
	Deleted   bool      `gorm:"column:deleted;not null"`
	Published time.Time `gorm:"column:published;not null"`
}

func (Comment) TableName() string {
	return "comment"
}

type PostLike struct {
	PostID    PostID    `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	PersonID  PersonID  `gorm:"column:person_id;primaryKey;autoIncrement:false"`
	Score     int16     `gorm:"column:score;not null"`
	Published time.Time `gorm:"column:published;not null"`
}

func (PostLike) TableName() string {
	return "post_like"
}

type CommentLike struct {
	CommentID CommentID `gorm:"column:comment_id;primaryKey;autoIncrement:false"`
	PersonID  PersonID  `gorm:"column:person_id;primaryKey;autoIncrement:false"`
	Score     int16     `gorm:"column:score;not null"`
	Published time.Time `gorm:"column:published;not null"`
}

func (CommentLike) TableName() string {
	return "comment_like"
}

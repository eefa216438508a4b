package models

import (
	"time"
)

type PersonID int64
type InstanceID int64
type LocalUserID int64
type CommunityID int64
type PostID int64
type CommentID int64

type Instance struct {
	ID        InstanceID `gorm:"column:id;primarykey" json:"id"`
	Domain    string     `gorm:"column:domain;uniqueIndex;not null" json:"domain"`
	Published time.Time  `gorm:"column:published;not null" json:"published"`
}

func (Instance) TableName() string {
	return "instance"
}

type PersonState string

const (
	PersonActive  = PersonState("active")
	PersonDeleted = PersonState("deleted")
)

// Person is a local or remote actor. The counter columns are written by the content aggregate
// mechanism, never by person store writes.
type Person struct {
	ID          PersonID `gorm:"column:id;primarykey" json:"id"`
	Name        string   `gorm:"column:name;not null;index" json:"name"`
	DisplayName *string  `gorm:"column:display_name" json:"display_name,omitempty"`
	Avatar      *string  `gorm:"column:avatar" json:"avatar,omitempty"`
	Banner      *string  `gorm:"column:banner" json:"banner,omitempty"`
	Bio         *string  `gorm:"column:bio" json:"bio,omitempty"`

	// external messaging handle (eg, matrix), scrubbed on account deletion
	MatrixUserID *string `gorm:"column:matrix_user_id" json:"matrix_user_id,omitempty"`

	// stable external identifier; the federation join key. a placeholder may be replaced once, a real
	// id never changes
	ApID     string `gorm:"column:ap_id;uniqueIndex;not null" json:"ap_id"`
	InboxURL string `gorm:"column:inbox_url;not null" json:"inbox_url"`

	Local      bool       `gorm:"column:local;not null" json:"local"`
	BotAccount bool       `gorm:"column:bot_account;not null" json:"bot_account"`
	Deleted    bool       `gorm:"column:deleted;not null" json:"deleted"`
	Banned     bool       `gorm:"column:banned;not null" json:"banned"`
	BanExpires *time.Time `gorm:"column:ban_expires" json:"ban_expires,omitempty"`

	Published       time.Time  `gorm:"column:published;not null" json:"published"`
	Updated         *time.Time `gorm:"column:updated" json:"updated,omitempty"`
	LastRefreshedAt time.Time  `gorm:"column:last_refreshed_at;not null" json:"last_refreshed_at"`

	PublicKey  string  `gorm:"column:public_key;not null" json:"public_key"`
	PrivateKey *string `gorm:"column:private_key" json:"-"`

	// references Instance.ID; the owning domain
	InstanceID InstanceID `gorm:"column:instance_id;not null;index" json:"instance_id"`

	PostCount    int64 `gorm:"column:post_count;not null;default:0" json:"post_count"`
	PostScore    int64 `gorm:"column:post_score;not null;default:0" json:"post_score"`
	CommentCount int64 `gorm:"column:comment_count;not null;default:0" json:"comment_count"`
	CommentScore int64 `gorm:"column:comment_score;not null;default:0" json:"comment_score"`
}

func (Person) TableName() string {
	return "person"
}

func (p *Person) State() PersonState {
	if p.Deleted {
		return PersonDeleted
	}
	return PersonActive
}

// LocalUser holds the account-level data for a locally registered Person.
type LocalUser struct {
	ID                LocalUserID `gorm:"column:id;primarykey"`
	PersonID          PersonID    `gorm:"column:person_id;uniqueIndex;not null"`
	Email             *string     `gorm:"column:email"`
	PasswordEncrypted string      `gorm:"column:password_encrypted;not null"`
	Published         time.Time   `gorm:"column:published;not null"`
}

func (LocalUser) TableName() string {
	return "local_user"
}

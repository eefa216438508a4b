package models

import (
	"time"
)

// PersonActions is the stored row for all directed person-to-person actions (follow, block). A
// row with every action column null carries no information and gets removed.
type PersonActions struct {
	// the acting person (eg, the follower)
	PersonID PersonID `gorm:"column:person_id;primaryKey;autoIncrement:false"`
	// the person acted upon (eg, the followed)
	TargetID PersonID `gorm:"column:target_id;primaryKey;autoIncrement:false;index"`

	Followed      *time.Time `gorm:"column:followed"`
	FollowPending *bool      `gorm:"column:follow_pending"`
	Blocked       *time.Time `gorm:"column:blocked"`
}

func (PersonActions) TableName() string {
	return "person_actions"
}

type FollowState string

const (
	FollowStateNotFollowing = FollowState("not-following")
	FollowStatePending      = FollowState("pending")
	FollowStateAccepted     = FollowState("accepted")
)

// PersonFollower is a follow edge: FollowerID follows PersonID.
type PersonFollower struct {
	PersonID   PersonID    `json:"person_id"`
	FollowerID PersonID    `json:"follower_id"`
	Followed   time.Time   `json:"followed"`
	State      FollowState `json:"state"`
}

func (pf *PersonFollower) Pending() bool {
	return pf.State == FollowStatePending
}

// FollowState derives the edge state from the nullable columns. A pending flag without a followed
// timestamp is treated as not following.
func (pa *PersonActions) FollowState() FollowState {
	if pa.Followed == nil {
		return FollowStateNotFollowing
	}
	if pa.FollowPending != nil && *pa.FollowPending {
		return FollowStatePending
	}
	return FollowStateAccepted
}

// Follower returns the follow edge view of this row, or nil if the row is not a current follow.
func (pa *PersonActions) Follower() *PersonFollower {
	st := pa.FollowState()
	if st == FollowStateNotFollowing {
		return nil
	}
	return &PersonFollower{
		PersonID:   pa.TargetID,
		FollowerID: pa.PersonID,
		Followed:   *pa.Followed,
		State:      st,
	}
}

type PersonBlock struct {
	PersonID PersonID  `json:"person_id"`
	TargetID PersonID  `json:"target_id"`
	Blocked  time.Time `json:"blocked"`
}

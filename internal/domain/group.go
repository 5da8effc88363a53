package domain

import "time"

type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Owner       *User     `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership links a user to a group. The group owner always holds an
// admin membership created alongside the group.
type Membership struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	GroupID   uint      `gorm:"primaryKey" json:"group_id"`
	IsAdmin   bool      `gorm:"not null" json:"is_admin"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Invite struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	GroupID   uint      `gorm:"primaryKey" json:"group_id"`
	InvitedBy uint      `gorm:"not null" json:"invited_by"`
	Group     *Group    `json:"group,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

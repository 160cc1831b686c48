package model

import "time"

// UserStatusActive is the only userStatus allowed to use gated endpoints.
const UserStatusActive = 1

// User represents a row in the `users` table.  A user is identified by
// the pair (Vendor, UniqueID): the auth provider and the id that provider
// assigned.  Users are created on first login.
//
// Fields:
//  ID         – primary key identifier of the user.
//  Vendor     – auth provider code.
//  UniqueID   – provider scoped identity.
//  UserStatus – 1 for active users, anything else is restricted.
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
//  DeletedAt  – tombstone set by a soft delete.
type User struct {
	ID         uint64     `json:"id"`
	Vendor     int        `json:"vendor"`
	UniqueID   string     `json:"uniqueId"`
	UserStatus int        `json:"userStatus"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeletedAt  *time.Time `json:"-"`
}

// Identity is what the token carries: who is calling and with which status.
type Identity struct {
	UserID     uint64
	UserStatus int
}

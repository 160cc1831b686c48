// Package repository defines the persistence layer for seats and users and
// the error values shared by its implementations.  Handlers never see these
// errors directly; the service layer translates them.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrUserNotFound is returned when a user lookup or delete matches no row.
var ErrUserNotFound = errors.New("user not found")

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/cafe-seat-share/internal/model"
)

// MemoryUserRepo is the in-memory counterpart of UserRepo.
type MemoryUserRepo struct {
	mu     sync.Mutex
	users  []model.User
	nextID uint64
}

func NewMemoryUserRepo() *MemoryUserRepo { return &MemoryUserRepo{nextID: 1} }

// FindOrCreate mirrors UserRepo.FindOrCreate.
func (r *MemoryUserRepo) FindOrCreate(_ context.Context, vendor int, uniqueID string, now time.Time) (model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		u := &r.users[i]
		if u.Vendor == vendor && u.UniqueID == uniqueID {
			if u.DeletedAt != nil {
				u.DeletedAt = nil
				u.UpdatedAt = now
			}
			return *u, false, nil
		}
	}
	u := model.User{
		ID:         r.nextID,
		Vendor:     vendor,
		UniqueID:   uniqueID,
		UserStatus: model.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.nextID++
	r.users = append(r.users, u)
	return u, true, nil
}

// Delete mirrors UserRepo.Delete.
func (r *MemoryUserRepo) Delete(_ context.Context, id uint64, hard bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID != id {
			continue
		}
		if hard {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
		if r.users[i].DeletedAt != nil {
			return ErrUserNotFound
		}
		t := now
		r.users[i].DeletedAt = &t
		r.users[i].UpdatedAt = now
		return nil
	}
	return ErrUserNotFound
}

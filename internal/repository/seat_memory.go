package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/cafe-seat-share/internal/model"
)

// MemorySeatRepo keeps seats in process memory.  It is selected with
// STORE_DRIVER=memory for local runs and backs the service and router
// tests.  The mutex plays the part of the row lock MySQL takes for a
// conditional UPDATE; the repo is only valid for a single process.
type MemorySeatRepo struct {
	mu     sync.Mutex
	seats  []model.Seat
	nextID uint64
}

// NewMemorySeatRepo returns an empty in-memory seat store.
func NewMemorySeatRepo() *MemorySeatRepo {
	return &MemorySeatRepo{nextID: 1}
}

// FindAvailable implements the same filter and ordering as SeatRepo.
func (r *MemorySeatRepo) FindAvailable(_ context.Context, w model.Window, origin *model.GeoPoint) ([]model.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cond := model.AvailableCondition(w)
	out := []model.Seat{}
	for _, s := range r.seats {
		if cond.Matches(s) {
			out = append(out, cloneSeat(s))
		}
	}
	if origin != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return model.DistanceScore(*origin, out[i].Lat, out[i].Lng) <
				model.DistanceScore(*origin, out[j].Lat, out[j].Lng)
		})
	}
	return out, nil
}

// FindOwned returns the lowest-id available seat of giverID.
func (r *MemorySeatRepo) FindOwned(_ context.Context, giverID uint64, w model.Window) (*model.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cond := model.AvailableCondition(w)
	cond.GiverID = giverID
	for _, s := range r.seats {
		if cond.Matches(s) {
			c := cloneSeat(s)
			return &c, nil
		}
	}
	return nil, ErrSeatNotFound
}

// FindByID retrieves a non-tombstoned seat.
func (r *MemorySeatRepo) FindByID(_ context.Context, id uint64) (*model.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.seats {
		if s.ID == id && s.DeletedAt == nil {
			c := cloneSeat(s)
			return &c, nil
		}
	}
	return nil, ErrSeatNotFound
}

// Create stores a copy of s with a fresh id, active status and no taker.
func (r *MemorySeatRepo) Create(_ context.Context, s *model.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	s.SeatStatus = model.SeatStatusActive
	s.TakerID = nil
	s.TakenAt = nil
	r.seats = append(r.seats, cloneSeat(*s))
	return nil
}

// ConditionalUpdate checks cond and applies patch under one lock.
func (r *MemorySeatRepo) ConditionalUpdate(_ context.Context, cond model.SeatCondition, patch model.SeatPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.seats {
		if cond.Matches(r.seats[i]) {
			patch.Apply(&r.seats[i])
			n++
		}
	}
	return n, nil
}

func cloneSeat(s model.Seat) model.Seat {
	c := s
	if s.TakerID != nil {
		id := *s.TakerID
		c.TakerID = &id
	}
	if s.TakenAt != nil {
		t := *s.TakenAt
		c.TakenAt = &t
	}
	if s.DescriptionCloseTime != nil {
		t := *s.DescriptionCloseTime
		c.DescriptionCloseTime = &t
	}
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

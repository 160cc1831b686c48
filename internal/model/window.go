package model

import (
	"math"
	"time"
)

// Window holds the bounds a seat must satisfy at one instant.  All
// bounds of a request are derived from the same Now so that the several
// comparisons of a single query never disagree.
type Window struct {
	Now          time.Time // the request's clock reading
	LeaveAfter   time.Time // leave_at must be >= this
	CreatedAfter time.Time // created_at must be >= this (midnight of today)
}

// SeatCondition is the predicate of a conditional write or filtered read.
// Zero values mean "no constraint" for that column.  Tombstoned rows are
// excluded unless IncludeTombstoned is set.
type SeatCondition struct {
	IncludeTombstoned bool

	ID             uint64
	GiverID        uint64
	ExcludeGiverID uint64
	Status         int
	Unclaimed      bool
	LeaveAfter     time.Time
	CreatedAfter   time.Time
}

// AvailableCondition is the availability invariant: active, unclaimed,
// leaving no earlier than w.LeaveAfter and created since w.CreatedAfter.
func AvailableCondition(w Window) SeatCondition {
	return SeatCondition{
		Status:       SeatStatusActive,
		Unclaimed:    true,
		LeaveAfter:   w.LeaveAfter,
		CreatedAfter: w.CreatedAfter,
	}
}

// Matches evaluates the condition against a seat the same way the SQL
// WHERE clause built from it does.
func (c SeatCondition) Matches(s Seat) bool {
	if s.DeletedAt != nil && !c.IncludeTombstoned {
		return false
	}
	if c.ID != 0 && s.ID != c.ID {
		return false
	}
	if c.GiverID != 0 && s.GiverID != c.GiverID {
		return false
	}
	if c.ExcludeGiverID != 0 && s.GiverID == c.ExcludeGiverID {
		return false
	}
	if c.Status != 0 && s.SeatStatus != c.Status {
		return false
	}
	if c.Unclaimed && s.TakerID != nil {
		return false
	}
	if !c.LeaveAfter.IsZero() && s.LeaveAt.Before(c.LeaveAfter) {
		return false
	}
	if !c.CreatedAfter.IsZero() && s.CreatedAt.Before(c.CreatedAfter) {
		return false
	}
	return true
}

// SeatPatch lists the columns a conditional write sets.  Nil fields are
// left untouched.  UpdatedAt is always written.
type SeatPatch struct {
	LeaveAt              *time.Time
	DescriptionGiver     *string
	CafeName             *string
	SpaceKakaoMapID      *string
	Address              *string
	Lat                  *float64
	Lng                  *float64
	HavePlug             *bool
	ThumbnailURL         *string
	DescriptionSeat      *string
	DescriptionCloseTime *time.Time
	SeatStatus           *int
	TakerID              *uint64
	TakenAt              *time.Time
	ClearTombstone       bool
	UpdatedAt            time.Time
}

// Apply copies the set fields of p onto s.
func (p SeatPatch) Apply(s *Seat) {
	if p.LeaveAt != nil {
		s.LeaveAt = *p.LeaveAt
	}
	if p.DescriptionGiver != nil {
		s.DescriptionGiver = *p.DescriptionGiver
	}
	if p.CafeName != nil {
		s.CafeName = *p.CafeName
	}
	if p.SpaceKakaoMapID != nil {
		s.SpaceKakaoMapID = *p.SpaceKakaoMapID
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.Lat != nil {
		s.Lat = *p.Lat
	}
	if p.Lng != nil {
		s.Lng = *p.Lng
	}
	if p.HavePlug != nil {
		s.HavePlug = *p.HavePlug
	}
	if p.ThumbnailURL != nil {
		s.ThumbnailURL = *p.ThumbnailURL
	}
	if p.DescriptionSeat != nil {
		s.DescriptionSeat = *p.DescriptionSeat
	}
	if p.DescriptionCloseTime != nil {
		t := *p.DescriptionCloseTime
		s.DescriptionCloseTime = &t
	}
	if p.SeatStatus != nil {
		s.SeatStatus = *p.SeatStatus
	}
	if p.TakerID != nil {
		id := *p.TakerID
		s.TakerID = &id
	}
	if p.TakenAt != nil {
		t := *p.TakenAt
		s.TakenAt = &t
	}
	if p.ClearTombstone {
		s.DeletedAt = nil
	}
	if !p.UpdatedAt.IsZero() {
		s.UpdatedAt = p.UpdatedAt
	}
}

// GeoPoint is a caller position used to order seats by distance.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceScore mirrors the ORDER BY expression of the seat listing:
//
//	ACOS(SIN(lat0)*SIN(lat) + COS(lat0)*COS(lat)*COS(lng0-lng))
//
// The inputs are passed to the trigonometric functions as stored, without
// a degree to radian conversion, so the score only has meaning as a sort
// key.  The cosine sum is clamped to [-1, 1] to absorb rounding.
func DistanceScore(origin GeoPoint, lat, lng float64) float64 {
	v := math.Sin(origin.Lat)*math.Sin(lat) +
		math.Cos(origin.Lat)*math.Cos(lat)*math.Cos(origin.Lng-lng)
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return math.Acos(v)
}

package model

import "time"

// Seat status values stored in seats.seat_status.  The status is a
// business flag and is independent from the taken state and from the
// deleted_at tombstone.
const (
	SeatStatusActive  = 1
	SeatStatusDeleted = 9
)

// Seat describes a cafe seat offered by a giver.  A seat is claimed
// when TakerID and TakenAt are set; both are nil for an unclaimed seat.
//
// Fields:
//  ID                   – primary key identifier.
//  GiverID              – user who offered the seat; never changes.
//  TakerID              – user who claimed the seat (nil when unclaimed).
//  TakenAt              – claim timestamp, written together with TakerID.
//  SeatStatus           – SeatStatusActive or SeatStatusDeleted.
//  LeaveAt              – when the giver vacates the seat.
//  CafeName .. DescriptionCloseTime – descriptive fields editable by the giver.
//  CreatedAt/UpdatedAt  – row timestamps.
//  DeletedAt            – tombstone; rows with a value are hidden from every query.
type Seat struct {
	ID                   uint64     `json:"id"`
	GiverID              uint64     `json:"giverId"`
	TakerID              *uint64    `json:"takerId"`
	TakenAt              *time.Time `json:"takenAt"`
	SeatStatus           int        `json:"seatStatus"`
	LeaveAt              time.Time  `json:"leaveAt"`
	CafeName             string     `json:"cafeName"`
	SpaceKakaoMapID      string     `json:"spaceKakaoMapId"`
	Address              string     `json:"address"`
	Lat                  float64    `json:"lat"`
	Lng                  float64    `json:"lng"`
	HavePlug             bool       `json:"havePlug"`
	ThumbnailURL         string     `json:"thumbnailUrl"`
	DescriptionSeat      string     `json:"descriptionSeat"`
	DescriptionGiver     string     `json:"descriptionGiver"`
	DescriptionCloseTime *time.Time `json:"descriptionCloseTime"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	DeletedAt            *time.Time `json:"-"`
}

// IsGivenBy reports whether userID offered the seat.
func (s Seat) IsGivenBy(userID uint64) bool { return s.GiverID == userID }

// IsTakenBy reports whether userID claimed the seat.  A zero userID asks
// whether the seat is still unclaimed.
func (s Seat) IsTakenBy(userID uint64) bool {
	if userID == 0 {
		return s.TakerID == nil
	}
	return s.TakerID != nil && *s.TakerID == userID
}

// MinutesUntilLeave returns the whole minutes between now and LeaveAt.
// The value is negative once the giver has left.
func (s Seat) MinutesUntilLeave(now time.Time) int {
	return int(s.LeaveAt.Sub(now) / time.Minute)
}

// IsAvailable reports whether the seat is listed and claimable inside w.
func (s Seat) IsAvailable(w Window) bool {
	return AvailableCondition(w).Matches(s)
}

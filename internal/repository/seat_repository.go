package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel checks
	"strings"
	"time"

	"github.com/iliyamo/cafe-seat-share/internal/model"
)

const seatColumns = `id, giver_id, taker_id, taken_at, seat_status, leave_at,
	cafe_name, space_kakao_map_id, address, lat, lng, have_plug,
	thumbnail_url, description_seat, description_giver, description_close_time,
	created_at, updated_at`

// distanceOrder is the cosine-law expression applied to raw coordinate
// values.  See model.DistanceScore.
const distanceOrder = `ACOS(SIN(?)*SIN(lat) + COS(?)*COS(lat)*COS(? - lng)) ASC, id ASC`

// SeatRepo provides methods to work with seats in MySQL.  Every write is a
// single statement whose WHERE clause carries the whole precondition.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// FindAvailable lists every seat matching the availability window.  When
// origin is nil seats come back in insertion order, otherwise nearest first.
func (r *SeatRepo) FindAvailable(ctx context.Context, w model.Window, origin *model.GeoPoint) ([]model.Seat, error) {
	where, args := seatWhere(model.AvailableCondition(w))
	q := `SELECT ` + seatColumns + ` FROM seats WHERE ` + where
	if origin != nil {
		q += ` ORDER BY ` + distanceOrder
		args = append(args, origin.Lat, origin.Lat, origin.Lng)
	} else {
		q += ` ORDER BY id ASC`
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindOwned returns the first available seat offered by giverID.  Nothing
// in the schema stops a giver from holding two, so the lowest id wins.
func (r *SeatRepo) FindOwned(ctx context.Context, giverID uint64, w model.Window) (*model.Seat, error) {
	cond := model.AvailableCondition(w)
	cond.GiverID = giverID
	where, args := seatWhere(cond)
	q := `SELECT ` + seatColumns + ` FROM seats WHERE ` + where + ` ORDER BY id ASC LIMIT 1`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByID retrieves a seat by its id (no ownership or window check).
func (r *SeatRepo) FindByID(ctx context.Context, id uint64) (*model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id = ? AND deleted_at IS NULL`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new seat.  The status is forced to active and the taker
// columns are left NULL whatever the caller passed.  On success the seat's
// ID is populated.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	const q = `INSERT INTO seats (giver_id, seat_status, leave_at, cafe_name, space_kakao_map_id,
	           address, lat, lng, have_plug, thumbnail_url, description_seat, description_giver,
	           description_close_time, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	s.SeatStatus = model.SeatStatusActive
	s.TakerID = nil
	s.TakenAt = nil
	res, err := r.db.ExecContext(ctx, q,
		s.GiverID, s.SeatStatus, s.LeaveAt.UTC(), s.CafeName, s.SpaceKakaoMapID,
		s.Address, s.Lat, s.Lng, s.HavePlug, s.ThumbnailURL, s.DescriptionSeat, s.DescriptionGiver,
		nullTime(s.DescriptionCloseTime), s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ConditionalUpdate applies patch to the rows matching cond in one UPDATE
// and returns how many rows matched.  Zero is not an error: it means the
// precondition did not hold at write time.  The DSN must enable
// clientFoundRows so that a patch equal to the stored values still counts.
func (r *SeatRepo) ConditionalUpdate(ctx context.Context, cond model.SeatCondition, patch model.SeatPatch) (int64, error) {
	set, setArgs := seatSet(patch)
	where, whereArgs := seatWhere(cond)
	q := `UPDATE seats SET ` + set + ` WHERE ` + where
	res, err := r.db.ExecContext(ctx, q, append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// seatWhere renders a condition as a WHERE clause.  The tombstone filter is
// present unless the condition opts out of it.
func seatWhere(c model.SeatCondition) (string, []any) {
	clauses := []string{}
	if !c.IncludeTombstoned {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	args := []any{}
	if c.ID != 0 {
		clauses = append(clauses, "id = ?")
		args = append(args, c.ID)
	}
	if c.GiverID != 0 {
		clauses = append(clauses, "giver_id = ?")
		args = append(args, c.GiverID)
	}
	if c.ExcludeGiverID != 0 {
		clauses = append(clauses, "giver_id <> ?")
		args = append(args, c.ExcludeGiverID)
	}
	if c.Status != 0 {
		clauses = append(clauses, "seat_status = ?")
		args = append(args, c.Status)
	}
	if c.Unclaimed {
		clauses = append(clauses, "taker_id IS NULL")
	}
	if !c.LeaveAfter.IsZero() {
		clauses = append(clauses, "leave_at >= ?")
		args = append(args, c.LeaveAfter.UTC())
	}
	if !c.CreatedAfter.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, c.CreatedAfter.UTC())
	}
	return strings.Join(clauses, " AND "), args
}

// seatSet renders the SET list of a patch in a fixed column order.
func seatSet(p model.SeatPatch) (string, []any) {
	cols := []string{}
	args := []any{}
	add := func(col string, v any) {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}
	if p.LeaveAt != nil {
		add("leave_at", p.LeaveAt.UTC())
	}
	if p.DescriptionGiver != nil {
		add("description_giver", *p.DescriptionGiver)
	}
	if p.CafeName != nil {
		add("cafe_name", *p.CafeName)
	}
	if p.SpaceKakaoMapID != nil {
		add("space_kakao_map_id", *p.SpaceKakaoMapID)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Lat != nil {
		add("lat", *p.Lat)
	}
	if p.Lng != nil {
		add("lng", *p.Lng)
	}
	if p.HavePlug != nil {
		add("have_plug", *p.HavePlug)
	}
	if p.ThumbnailURL != nil {
		add("thumbnail_url", *p.ThumbnailURL)
	}
	if p.DescriptionSeat != nil {
		add("description_seat", *p.DescriptionSeat)
	}
	if p.DescriptionCloseTime != nil {
		add("description_close_time", p.DescriptionCloseTime.UTC())
	}
	if p.SeatStatus != nil {
		add("seat_status", *p.SeatStatus)
	}
	if p.TakerID != nil {
		add("taker_id", *p.TakerID)
	}
	if p.TakenAt != nil {
		add("taken_at", p.TakenAt.UTC())
	}
	if p.ClearTombstone {
		cols = append(cols, "deleted_at = NULL")
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	add("updated_at", updated.UTC())
	return strings.Join(cols, ", "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(row rowScanner) (model.Seat, error) {
	var (
		s         model.Seat
		takerID   sql.NullInt64
		takenAt   sql.NullTime
		thumbnail sql.NullString
		descGiver sql.NullString
		closeTime sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.GiverID, &takerID, &takenAt, &s.SeatStatus, &s.LeaveAt,
		&s.CafeName, &s.SpaceKakaoMapID, &s.Address, &s.Lat, &s.Lng, &s.HavePlug,
		&thumbnail, &s.DescriptionSeat, &descGiver, &closeTime,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return model.Seat{}, err
	}
	if takerID.Valid {
		id := uint64(takerID.Int64)
		s.TakerID = &id
	}
	if takenAt.Valid {
		t := takenAt.Time
		s.TakenAt = &t
	}
	if closeTime.Valid {
		t := closeTime.Time
		s.DescriptionCloseTime = &t
	}
	s.ThumbnailURL = thumbnail.String
	s.DescriptionGiver = descGiver.String
	return s, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cafe-seat-share/internal/model"
	"github.com/iliyamo/cafe-seat-share/internal/queue"
	"github.com/iliyamo/cafe-seat-share/internal/repository"
	"github.com/iliyamo/cafe-seat-share/internal/utils"
)

// DefaultLeaveLeadMinutes is how far ahead of now a seat's leave time must
// be for the seat to be listed or claimed.
const DefaultLeaveLeadMinutes = 10

const publishTimeout = 3 * time.Second

// SeatStore is the persistence contract of the engine.  ConditionalUpdate
// must evaluate the condition and apply the patch atomically and report
// the number of matched rows.
type SeatStore interface {
	FindAvailable(ctx context.Context, w model.Window, origin *model.GeoPoint) ([]model.Seat, error)
	FindOwned(ctx context.Context, giverID uint64, w model.Window) (*model.Seat, error)
	FindByID(ctx context.Context, id uint64) (*model.Seat, error)
	Create(ctx context.Context, s *model.Seat) error
	ConditionalUpdate(ctx context.Context, cond model.SeatCondition, patch model.SeatPatch) (int64, error)
}

// Clock returns the current time in the server offset.
type Clock interface {
	Now() time.Time
}

// EventPublisher receives an event after each successful seat write.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SeatEvent) error
}

// SeatPolicy carries the tunables of the availability window.
type SeatPolicy struct {
	LeaveLeadMinutes int
}

// GeoLocation is the coordinate object of a seat request body.
type GeoLocation struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// CreateSeatInput is the body of a create request.  Every field except
// DescriptionCloseTime is required.
type CreateSeatInput struct {
	LeaveAt              *time.Time   `json:"leaveAt" validate:"required"`
	DescriptionGiver     string       `json:"descriptionGiver" validate:"required"`
	CafeName             string       `json:"cafeName" validate:"required"`
	SpaceKakaoMapID      string       `json:"spaceKakaoMapId" validate:"required"`
	Address              string       `json:"address" validate:"required"`
	GeoLocation          *GeoLocation `json:"geoLocation" validate:"required"`
	HavePlug             *bool        `json:"havePlug" validate:"required"`
	ThumbnailURL         string       `json:"thumbnailUrl" validate:"required"`
	DescriptionSeat      string       `json:"descriptionSeat" validate:"required"`
	DescriptionCloseTime *time.Time   `json:"descriptionCloseTime"`
}

// UpdateSeatInput is the whitelist of fields a giver may change.  Fields
// left nil are not touched; anything else in the request body is dropped
// by the decoder.
type UpdateSeatInput struct {
	LeaveAt              *time.Time   `json:"leaveAt"`
	DescriptionGiver     *string      `json:"descriptionGiver"`
	CafeName             *string      `json:"cafeName"`
	SpaceKakaoMapID      *string      `json:"spaceKakaoMapId"`
	Address              *string      `json:"address"`
	GeoLocation          *GeoLocation `json:"geoLocation"`
	HavePlug             *bool        `json:"havePlug"`
	ThumbnailURL         *string      `json:"thumbnailUrl"`
	DescriptionSeat      *string      `json:"descriptionSeat"`
	DescriptionCloseTime *time.Time   `json:"descriptionCloseTime"`
}

// SeatService implements the seat lifecycle.  It holds no locks: every
// state change is a single conditional write in the store.
type SeatService struct {
	store    SeatStore
	clock    Clock
	events   EventPublisher
	lead     int
	validate *validator.Validate
	log      *slog.Logger
}

// NewSeatService wires the engine.  A nil publisher disables events and a
// nil logger falls back to slog.Default().
func NewSeatService(store SeatStore, clock Clock, events EventPublisher, policy SeatPolicy, logger *slog.Logger) *SeatService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	lead := policy.LeaveLeadMinutes
	if lead <= 0 {
		lead = DefaultLeaveLeadMinutes
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &SeatService{
		store:    store,
		clock:    clock,
		events:   events,
		lead:     lead,
		validate: v,
		log:      logger.With("component", "seat_service"),
	}
}

// window reads the clock once and derives every bound from that reading.
func (s *SeatService) window() model.Window {
	now := s.clock.Now()
	return model.Window{
		Now:          now,
		LeaveAfter:   utils.TimeShiftedFrom(now, s.lead),
		CreatedAfter: utils.MidnightShiftedFrom(now, 0),
	}
}

// ListAvailable returns every available seat, nearest first when origin
// is given and in insertion order otherwise.
func (s *SeatService) ListAvailable(ctx context.Context, origin *model.GeoPoint) ([]model.Seat, error) {
	seats, err := s.store.FindAvailable(ctx, s.window(), origin)
	if err != nil {
		s.log.ErrorContext(ctx, "list seats failed", "err", err)
		return nil, storeErr("list seats", err)
	}
	return seats, nil
}

// GetSeat returns a seat by id regardless of its window.
func (s *SeatService) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	if id == 0 {
		return nil, ErrNotFoundOrDenied
	}
	seat, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, ErrNotFoundOrDenied
		}
		s.log.ErrorContext(ctx, "get seat failed", "seat_id", id, "err", err)
		return nil, storeErr("get seat", err)
	}
	return seat, nil
}

// CurrentSeat returns the caller's own seat that is still available.
func (s *SeatService) CurrentSeat(ctx context.Context, caller model.Identity) (*model.Seat, error) {
	if err := checkIdentity(caller); err != nil {
		return nil, err
	}
	seat, err := s.store.FindOwned(ctx, caller.UserID, s.window())
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, ErrNotFoundOrDenied
		}
		s.log.ErrorContext(ctx, "find own seat failed", "user_id", caller.UserID, "err", err)
		return nil, storeErr("find own seat", err)
	}
	return seat, nil
}

// CreateSeat publishes a new active, unclaimed seat owned by the caller.
// Input is validated before the store is touched.
func (s *SeatService) CreateSeat(ctx context.Context, caller model.Identity, in CreateSeatInput) (*model.Seat, error) {
	if err := checkIdentity(caller); err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	seat := &model.Seat{
		GiverID:              caller.UserID,
		SeatStatus:           model.SeatStatusActive,
		LeaveAt:              *in.LeaveAt,
		CafeName:             in.CafeName,
		SpaceKakaoMapID:      in.SpaceKakaoMapID,
		Address:              in.Address,
		Lat:                  *in.GeoLocation.Lat,
		Lng:                  *in.GeoLocation.Lng,
		HavePlug:             *in.HavePlug,
		ThumbnailURL:         in.ThumbnailURL,
		DescriptionSeat:      in.DescriptionSeat,
		DescriptionGiver:     in.DescriptionGiver,
		DescriptionCloseTime: in.DescriptionCloseTime,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.Create(ctx, seat); err != nil {
		s.log.ErrorContext(ctx, "create seat failed", "user_id", caller.UserID, "err", err)
		return nil, storeErr("create seat", err)
	}
	s.log.InfoContext(ctx, "seat created", "seat_id", seat.ID, "user_id", caller.UserID)
	ev := queue.NewSeatEvent(queue.SeatCreated, seat.ID, caller.UserID, now)
	ev.CafeName = seat.CafeName
	s.publish(ctx, ev)
	return seat, nil
}

// UpdateSeat patches the whitelisted fields of the caller's seat.  The
// seat must be active, created today and not leaving within the lead time.
// Whether it has been claimed does not matter.
func (s *SeatService) UpdateSeat(ctx context.Context, caller model.Identity, id uint64, in UpdateSeatInput) error {
	if err := checkIdentity(caller); err != nil {
		return err
	}
	w := s.window()
	cond := model.SeatCondition{
		ID:           id,
		GiverID:      caller.UserID,
		Status:       model.SeatStatusActive,
		LeaveAfter:   w.LeaveAfter,
		CreatedAfter: w.CreatedAfter,
	}
	patch := model.SeatPatch{
		LeaveAt:              in.LeaveAt,
		DescriptionGiver:     in.DescriptionGiver,
		CafeName:             in.CafeName,
		SpaceKakaoMapID:      in.SpaceKakaoMapID,
		Address:              in.Address,
		HavePlug:             in.HavePlug,
		ThumbnailURL:         in.ThumbnailURL,
		DescriptionSeat:      in.DescriptionSeat,
		DescriptionCloseTime: in.DescriptionCloseTime,
		UpdatedAt:            w.Now,
	}
	if in.GeoLocation != nil {
		patch.Lat = in.GeoLocation.Lat
		patch.Lng = in.GeoLocation.Lng
	}
	if err := s.write(ctx, "update seat", cond, patch); err != nil {
		return err
	}
	s.publish(ctx, queue.NewSeatEvent(queue.SeatUpdated, id, caller.UserID, w.Now))
	return nil
}

// DeleteSeat moves the caller's seat from active to deleted.
func (s *SeatService) DeleteSeat(ctx context.Context, caller model.Identity, id uint64) error {
	return s.setStatus(ctx, caller, id, model.SeatStatusActive, model.SeatStatusDeleted, queue.SeatDeleted)
}

// RestoreSeat moves the caller's seat from deleted back to active and
// clears a tombstone left on the row.  It is only routed when debug routes
// are enabled.
func (s *SeatService) RestoreSeat(ctx context.Context, caller model.Identity, id uint64) error {
	return s.setStatus(ctx, caller, id, model.SeatStatusDeleted, model.SeatStatusActive, queue.SeatRestored)
}

func (s *SeatService) setStatus(ctx context.Context, caller model.Identity, id uint64, from, to int, evType queue.SeatEventType) error {
	if err := checkIdentity(caller); err != nil {
		return err
	}
	w := s.window()
	restoring := to == model.SeatStatusActive
	cond := model.SeatCondition{
		IncludeTombstoned: restoring,
		ID:                id,
		GiverID:           caller.UserID,
		Status:            from,
		CreatedAfter:      w.CreatedAfter,
	}
	patch := model.SeatPatch{SeatStatus: &to, ClearTombstone: restoring, UpdatedAt: w.Now}
	if err := s.write(ctx, string(evType), cond, patch); err != nil {
		return err
	}
	s.publish(ctx, queue.NewSeatEvent(evType, id, caller.UserID, w.Now))
	return nil
}

// TakeSeat claims an available seat for the caller.  Of several concurrent
// claims on the same seat exactly one matches the conditional write; the
// others get ErrNotFoundOrDenied.  A giver cannot claim their own seat.
func (s *SeatService) TakeSeat(ctx context.Context, caller model.Identity, id uint64) error {
	if err := checkIdentity(caller); err != nil {
		return err
	}
	w := s.window()
	cond := model.AvailableCondition(w)
	cond.ID = id
	cond.ExcludeGiverID = caller.UserID
	taker := caller.UserID
	takenAt := w.Now
	patch := model.SeatPatch{TakerID: &taker, TakenAt: &takenAt, UpdatedAt: w.Now}
	if err := s.write(ctx, "take seat", cond, patch); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "seat taken", "seat_id", id, "user_id", caller.UserID)
	s.publish(ctx, queue.NewSeatEvent(queue.SeatTaken, id, caller.UserID, w.Now))
	return nil
}

func (s *SeatService) write(ctx context.Context, op string, cond model.SeatCondition, patch model.SeatPatch) error {
	if cond.ID == 0 {
		return ErrNotFoundOrDenied
	}
	n, err := s.store.ConditionalUpdate(ctx, cond, patch)
	if err != nil {
		s.log.ErrorContext(ctx, op+" failed", "seat_id", cond.ID, "err", err)
		return storeErr(op, err)
	}
	if n == 0 {
		return ErrNotFoundOrDenied
	}
	return nil
}

func (s *SeatService) publish(ctx context.Context, ev queue.SeatEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.WarnContext(ctx, "seat event not published", "type", ev.Type, "seat_id", ev.SeatID, "err", err)
	}
}

func (s *SeatService) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns)
	}
	return &ValidationError{Fields: fields}
}

func checkIdentity(id model.Identity) error {
	if id.UserID == 0 {
		return ErrNotAuthenticated
	}
	if id.UserStatus != model.UserStatusActive {
		return ErrForbidden
	}
	return nil
}

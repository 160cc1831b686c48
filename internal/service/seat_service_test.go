package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/cafe-seat-share/internal/model"
	"github.com/iliyamo/cafe-seat-share/internal/queue"
	"github.com/iliyamo/cafe-seat-share/internal/repository"
)

var kst = time.FixedZone("KST", 9*60*60)

// base is 13:00 local, well inside a single calendar day.
var base = time.Date(2026, 10, 18, 13, 0, 0, 0, kst)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SeatEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.SeatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []queue.SeatEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.SeatEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// countingStore wraps a store and counts every call reaching it.
type countingStore struct {
	SeatStore
	mu    sync.Mutex
	calls int
}

func (c *countingStore) hit() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingStore) Create(ctx context.Context, s *model.Seat) error {
	c.hit()
	return c.SeatStore.Create(ctx, s)
}

func (c *countingStore) ConditionalUpdate(ctx context.Context, cond model.SeatCondition, patch model.SeatPatch) (int64, error) {
	c.hit()
	return c.SeatStore.ConditionalUpdate(ctx, cond, patch)
}

type failingStore struct{ err error }

func (f failingStore) FindAvailable(context.Context, model.Window, *model.GeoPoint) ([]model.Seat, error) {
	return nil, f.err
}
func (f failingStore) FindOwned(context.Context, uint64, model.Window) (*model.Seat, error) {
	return nil, f.err
}
func (f failingStore) FindByID(context.Context, uint64) (*model.Seat, error) { return nil, f.err }
func (f failingStore) Create(context.Context, *model.Seat) error             { return f.err }
func (f failingStore) ConditionalUpdate(context.Context, model.SeatCondition, model.SeatPatch) (int64, error) {
	return 0, f.err
}

var (
	giver = model.Identity{UserID: 1, UserStatus: model.UserStatusActive}
	taker = model.Identity{UserID: 2, UserStatus: model.UserStatusActive}
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(t *testing.T) (*SeatService, *fakeClock, *recordingPublisher) {
	t.Helper()
	clock := &fakeClock{now: base}
	pub := &recordingPublisher{}
	svc := NewSeatService(repository.NewMemorySeatRepo(), clock, pub, SeatPolicy{LeaveLeadMinutes: 10}, quietLogger())
	return svc, clock, pub
}

func ptr[T any](v T) *T { return &v }

func validInput(leaveAt time.Time, lat, lng float64) CreateSeatInput {
	return CreateSeatInput{
		LeaveAt:          &leaveAt,
		DescriptionGiver: "leaving after this call",
		CafeName:         "Anthracite",
		SpaceKakaoMapID:  "kakao-123",
		Address:          "Hapjeong, Seoul",
		GeoLocation:      &GeoLocation{Lat: ptr(lat), Lng: ptr(lng)},
		HavePlug:         ptr(false),
		ThumbnailURL:     "https://img.example/seat.png",
		DescriptionSeat:  "window bar seat",
	}
}

func mustCreate(t *testing.T, svc *SeatService, who model.Identity, in CreateSeatInput) *model.Seat {
	t.Helper()
	s, err := svc.CreateSeat(context.Background(), who, in)
	if err != nil {
		t.Fatalf("create seat: %v", err)
	}
	return s
}

func listedIDs(t *testing.T, svc *SeatService, origin *model.GeoPoint) []uint64 {
	t.Helper()
	seats, err := svc.ListAvailable(context.Background(), origin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]uint64, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestCreateSeatValidationHappensBeforeAnyWrite(t *testing.T) {
	store := &countingStore{SeatStore: repository.NewMemorySeatRepo()}
	svc := NewSeatService(store, &fakeClock{now: base}, nil, SeatPolicy{}, quietLogger())

	in := validInput(base.Add(time.Hour), 0, 0)
	in.CafeName = ""
	in.GeoLocation.Lng = nil
	in.HavePlug = nil

	_, err := svc.CreateSeat(context.Background(), giver, in)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	for _, f := range []string{"cafeName", "geoLocation.lng", "havePlug"} {
		if !slices.Contains(verr.Fields, f) {
			t.Fatalf("fields %v missing %q", verr.Fields, f)
		}
	}
	if store.calls != 0 {
		t.Fatalf("store was called %d times", store.calls)
	}
}

func TestCreateSeatAcceptsFalseAndZeroValues(t *testing.T) {
	svc, _, pub := newTestService(t)
	s := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))
	if s.ID == 0 || s.GiverID != giver.UserID || s.SeatStatus != model.SeatStatusActive || s.TakerID != nil {
		t.Fatalf("unexpected seat: %+v", s)
	}
	if !s.CreatedAt.Equal(base) {
		t.Fatalf("createdAt = %v, want %v", s.CreatedAt, base)
	}
	if got := pub.types(); len(got) != 1 || got[0] != queue.SeatCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestAvailabilityWindowLeadTime(t *testing.T) {
	svc, clock, _ := newTestService(t)
	soon := mustCreate(t, svc, giver, validInput(base.Add(5*time.Minute), 0, 0))
	later := mustCreate(t, svc, giver, validInput(base.Add(20*time.Minute), 0, 0))

	clock.Set(base.Add(time.Minute))
	ids := listedIDs(t, svc, nil)
	if slices.Contains(ids, soon.ID) {
		t.Fatalf("seat leaving at T+5m listed at T+1m: %v", ids)
	}
	if !slices.Contains(ids, later.ID) {
		t.Fatalf("seat leaving at T+20m missing at T+1m: %v", ids)
	}

	if err := svc.TakeSeat(context.Background(), taker, soon.ID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("claiming an expiring seat: %v", err)
	}
}

func TestSeatsExpireAtMidnight(t *testing.T) {
	svc, clock, _ := newTestService(t)
	s := mustCreate(t, svc, giver, validInput(base.Add(48*time.Hour), 0, 0))

	clock.Set(base.Add(24 * time.Hour))
	if ids := listedIDs(t, svc, nil); len(ids) != 0 {
		t.Fatalf("yesterday's seat still listed: %v", ids)
	}
	err := svc.UpdateSeat(context.Background(), giver, s.ID, UpdateSeatInput{CafeName: ptr("renamed")})
	if !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("update next day: %v", err)
	}
	if err := svc.DeleteSeat(context.Background(), giver, s.ID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("delete next day: %v", err)
	}
}

func TestListAvailableDistanceOrdering(t *testing.T) {
	svc, _, _ := newTestService(t)
	b := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 90, 0))
	a := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))

	ids := listedIDs(t, svc, &model.GeoPoint{Lat: 0, Lng: 0})
	if len(ids) != 2 || ids[0] != a.ID || ids[1] != b.ID {
		t.Fatalf("order = %v, want [%d %d]", ids, a.ID, b.ID)
	}
	ids = listedIDs(t, svc, nil)
	if len(ids) != 2 || ids[0] != b.ID {
		t.Fatalf("insertion order = %v", ids)
	}
}

func TestTakeSeatConcurrentClaimsHaveOneWinner(t *testing.T) {
	svc, _, pub := newTestService(t)
	s := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))

	const claimers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uint64
		losers  int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			err := svc.TakeSeat(context.Background(), model.Identity{UserID: uid, UserStatus: model.UserStatusActive}, s.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, uid)
			case errors.Is(err, ErrNotFoundOrDenied):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	if len(winners) != 1 || losers != claimers-1 {
		t.Fatalf("winners=%v losers=%d", winners, losers)
	}
	got, err := svc.GetSeat(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsTakenBy(winners[0]) || got.TakenAt == nil {
		t.Fatalf("seat not claimed by winner %d: %+v", winners[0], got)
	}
	if ids := listedIDs(t, svc, nil); len(ids) != 0 {
		t.Fatalf("claimed seat still listed: %v", ids)
	}
	taken := 0
	for _, typ := range pub.types() {
		if typ == queue.SeatTaken {
			taken++
		}
	}
	if taken != 1 {
		t.Fatalf("published %d taken events", taken)
	}
}

func TestGiverCannotClaimOwnSeat(t *testing.T) {
	svc, _, _ := newTestService(t)
	s := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))
	if err := svc.TakeSeat(context.Background(), giver, s.ID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("self claim: %v", err)
	}
}

func TestUpdateSeatTouchesOnlyWhitelistedFields(t *testing.T) {
	svc, clock, pub := newTestService(t)
	orig := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 37.5, 127.0))

	clock.Set(base.Add(2 * time.Minute))
	newLeave := base.Add(2 * time.Hour)
	in := UpdateSeatInput{
		LeaveAt:     &newLeave,
		CafeName:    ptr("Fritz"),
		HavePlug:    ptr(true),
		GeoLocation: &GeoLocation{Lat: ptr(35.1), Lng: ptr(129.0)},
	}
	if err := svc.UpdateSeat(context.Background(), giver, orig.ID, in); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetSeat(context.Background(), orig.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CafeName != "Fritz" || !got.HavePlug || got.Lat != 35.1 || got.Lng != 129.0 || !got.LeaveAt.Equal(newLeave) {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.ID != orig.ID || got.GiverID != orig.GiverID || !got.CreatedAt.Equal(orig.CreatedAt) || got.SeatStatus != orig.SeatStatus {
		t.Fatalf("identity columns changed: %+v", got)
	}
	if got.Address != orig.Address || got.DescriptionSeat != orig.DescriptionSeat {
		t.Fatalf("unpatched fields changed: %+v", got)
	}
	if !got.UpdatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("updatedAt = %v", got.UpdatedAt)
	}
	if types := pub.types(); types[len(types)-1] != queue.SeatUpdated {
		t.Fatalf("events = %v", types)
	}
}

func TestUpdateSeatWithEmptyPatchStillMatches(t *testing.T) {
	svc, _, _ := newTestService(t)
	s := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))
	if err := svc.UpdateSeat(context.Background(), giver, s.ID, UpdateSeatInput{}); err != nil {
		t.Fatalf("empty update: %v", err)
	}
}

func TestUpdateSeatDeniedForOtherUsersAndClaimedStateIgnored(t *testing.T) {
	svc, _, _ := newTestService(t)
	s := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))

	if err := svc.UpdateSeat(context.Background(), taker, s.ID, UpdateSeatInput{CafeName: ptr("x")}); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("non-owner update: %v", err)
	}
	if err := svc.UpdateSeat(context.Background(), giver, 999, UpdateSeatInput{CafeName: ptr("x")}); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("missing seat update: %v", err)
	}

	if err := svc.TakeSeat(context.Background(), taker, s.ID); err != nil {
		t.Fatalf("take: %v", err)
	}
	if err := svc.UpdateSeat(context.Background(), giver, s.ID, UpdateSeatInput{DescriptionGiver: ptr("see you")}); err != nil {
		t.Fatalf("owner update after claim: %v", err)
	}
}

func TestDeleteThenRestoreReturnsSeatIntact(t *testing.T) {
	svc, _, pub := newTestService(t)
	orig := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 1, 2))
	ctx := context.Background()

	if err := svc.DeleteSeat(ctx, taker, orig.ID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("non-owner delete: %v", err)
	}
	if err := svc.DeleteSeat(ctx, giver, orig.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteSeat(ctx, giver, orig.ID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("second delete: %v", err)
	}
	if ids := listedIDs(t, svc, nil); len(ids) != 0 {
		t.Fatalf("deleted seat listed: %v", ids)
	}
	if _, err := svc.CurrentSeat(ctx, giver); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("current after delete: %v", err)
	}

	if err := svc.RestoreSeat(ctx, giver, orig.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := svc.RestoreSeat(ctx, giver, orig.ID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("restore of active seat: %v", err)
	}

	got, err := svc.GetSeat(ctx, orig.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SeatStatus != model.SeatStatusActive || got.CafeName != orig.CafeName || got.Lat != orig.Lat ||
		got.GiverID != orig.GiverID || !got.LeaveAt.Equal(orig.LeaveAt) || got.TakerID != nil {
		t.Fatalf("restored seat differs: %+v vs %+v", got, orig)
	}
	want := []queue.SeatEventType{queue.SeatCreated, queue.SeatDeleted, queue.SeatRestored}
	if !slices.Equal(pub.types(), want) {
		t.Fatalf("events = %v, want %v", pub.types(), want)
	}
}

func TestCurrentSeatReturnsFirstOwnedSeat(t *testing.T) {
	svc, _, _ := newTestService(t)
	first := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))
	mustCreate(t, svc, giver, validInput(base.Add(2*time.Hour), 0, 0))

	got, err := svc.CurrentSeat(context.Background(), giver)
	if err != nil || got.ID != first.ID {
		t.Fatalf("current seat = %+v, err = %v", got, err)
	}
	if _, err := svc.CurrentSeat(context.Background(), taker); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("taker has no seat: %v", err)
	}
}

func TestIdentityChecks(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	anon := model.Identity{}
	suspended := model.Identity{UserID: 5, UserStatus: 2}

	if _, err := svc.CreateSeat(ctx, anon, validInput(base.Add(time.Hour), 0, 0)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("anonymous create: %v", err)
	}
	if _, err := svc.CreateSeat(ctx, suspended, validInput(base.Add(time.Hour), 0, 0)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("suspended create: %v", err)
	}
	if err := svc.TakeSeat(ctx, suspended, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("suspended take: %v", err)
	}
	if _, err := svc.CurrentSeat(ctx, anon); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("anonymous current: %v", err)
	}
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewSeatService(failingStore{err: boom}, &fakeClock{now: base}, nil, SeatPolicy{}, quietLogger())
	ctx := context.Background()

	if _, err := svc.ListAvailable(ctx, nil); !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.GetSeat(ctx, 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("get: %v", err)
	}
	if err := svc.TakeSeat(ctx, taker, 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("take: %v", err)
	}
	if _, err := svc.CreateSeat(ctx, giver, validInput(base.Add(time.Hour), 0, 0)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("create: %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	clock := &fakeClock{now: base}
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewSeatService(repository.NewMemorySeatRepo(), clock, pub, SeatPolicy{}, quietLogger())
	s := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 0, 0))
	if err := svc.TakeSeat(context.Background(), taker, s.ID); err != nil {
		t.Fatalf("take with broker down: %v", err)
	}
}

// writeRecorder keeps the condition and patch of every conditional write.
type writeRecorder struct {
	SeatStore
	conds   []model.SeatCondition
	patches []model.SeatPatch
}

func (w *writeRecorder) ConditionalUpdate(ctx context.Context, cond model.SeatCondition, patch model.SeatPatch) (int64, error) {
	w.conds = append(w.conds, cond)
	w.patches = append(w.patches, patch)
	return w.SeatStore.ConditionalUpdate(ctx, cond, patch)
}

func TestOnlyRestoreReachesTombstonedSeats(t *testing.T) {
	rec := &writeRecorder{SeatStore: repository.NewMemorySeatRepo()}
	svc := NewSeatService(rec, &fakeClock{now: base}, nil, SeatPolicy{LeaveLeadMinutes: 10}, quietLogger())
	seat := mustCreate(t, svc, giver, validInput(base.Add(time.Hour), 1, 2))
	ctx := context.Background()

	if err := svc.DeleteSeat(ctx, giver, seat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.RestoreSeat(ctx, giver, seat.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(rec.conds) != 2 {
		t.Fatalf("writes = %d, want 2", len(rec.conds))
	}
	if rec.conds[0].IncludeTombstoned || rec.patches[0].ClearTombstone {
		t.Fatalf("delete touched the tombstone: %+v %+v", rec.conds[0], rec.patches[0])
	}
	if !rec.conds[1].IncludeTombstoned || !rec.patches[1].ClearTombstone {
		t.Fatalf("restore left the tombstone alone: %+v %+v", rec.conds[1], rec.patches[1])
	}
	if rec.conds[1].GiverID != giver.UserID || rec.conds[1].Status != model.SeatStatusDeleted {
		t.Fatalf("restore condition lost ownership or status: %+v", rec.conds[1])
	}
}

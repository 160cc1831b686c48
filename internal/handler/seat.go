package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-seat-share/internal/middleware"
	"github.com/iliyamo/cafe-seat-share/internal/model"
	"github.com/iliyamo/cafe-seat-share/internal/service"
)

const seatNotFound = "seat not found"

// SeatHandler exposes the seat lifecycle over HTTP.
type SeatHandler struct {
	Seats *service.SeatService
}

func NewSeatHandler(seats *service.SeatService) *SeatHandler {
	return &SeatHandler{Seats: seats}
}

// List returns every available seat.  With lat and/or lng in the query the
// list is ordered nearest first; a missing coordinate counts as 0.
func (h *SeatHandler) List(c echo.Context) error {
	origin, ok := parseOrigin(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coordinates"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seats, err := h.Seats.ListAvailable(ctx, origin)
	if err != nil {
		return writeError(c, err, seatNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

// Get returns one seat by id.
func (h *SeatHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": seatNotFound})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seat, err := h.Seats.GetSeat(ctx, id)
	if err != nil {
		return writeError(c, err, seatNotFound)
	}
	return c.JSON(http.StatusOK, seat)
}

// Current returns the caller's own seat that is still on offer.
func (h *SeatHandler) Current(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	seat, err := h.Seats.CurrentSeat(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, err, seatNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}

// Create offers a new seat on behalf of the caller.
func (h *SeatHandler) Create(c echo.Context) error {
	var in service.CreateSeatInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seat, err := h.Seats.CreateSeat(ctx, middleware.IdentityFrom(c), in)
	if err != nil {
		return writeError(c, err, seatNotFound)
	}
	return c.JSON(http.StatusCreated, seat)
}

// Update patches the whitelisted fields of the caller's seat.
func (h *SeatHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": seatNotFound})
	}
	var in service.UpdateSeatInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Seats.UpdateSeat(ctx, middleware.IdentityFrom(c), id, in); err != nil {
		return writeError(c, err, seatNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete withdraws the caller's seat.
func (h *SeatHandler) Delete(c echo.Context) error {
	return h.transition(c, h.Seats.DeleteSeat)
}

// Take claims a seat for the caller.
func (h *SeatHandler) Take(c echo.Context) error {
	return h.transition(c, h.Seats.TakeSeat)
}

// Restore reactivates a deleted seat (debug only).
func (h *SeatHandler) Restore(c echo.Context) error {
	return h.transition(c, h.Seats.RestoreSeat)
}

type seatTransition func(ctx context.Context, caller model.Identity, id uint64) error

func (h *SeatHandler) transition(c echo.Context, op seatTransition) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": seatNotFound})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := op(ctx, middleware.IdentityFrom(c), id); err != nil {
		return writeError(c, err, seatNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseOrigin(c echo.Context) (*model.GeoPoint, bool) {
	latRaw, lngRaw := c.QueryParam("lat"), c.QueryParam("lng")
	if latRaw == "" && lngRaw == "" {
		return nil, true
	}
	var p model.GeoPoint
	var err error
	if latRaw != "" {
		if p.Lat, err = strconv.ParseFloat(latRaw, 64); err != nil {
			return nil, false
		}
	}
	if lngRaw != "" {
		if p.Lng, err = strconv.ParseFloat(lngRaw, 64); err != nil {
			return nil, false
		}
	}
	return &p, true
}

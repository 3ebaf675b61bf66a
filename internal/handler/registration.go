// Package handler exposes the HTTP handlers of the registration API.  The
// public endpoints describe the event catalog with live seat availability
// and accept registration submissions; the admin endpoint lists stored
// registrations.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/availability"
	"github.com/iliyamo/event-registration/internal/catalog"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/registration"
	"github.com/iliyamo/event-registration/internal/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// RegistrationLister returns stored registrations, newest first.
type RegistrationLister interface {
	List(ctx context.Context, limit int) ([]model.Registration, error)
}

// SeatLister returns the store's per-event seat accounting.
type SeatLister interface {
	List(ctx context.Context) ([]repository.EventSeat, error)
}

// RegistrationHandler serves the catalog, availability and submission
// endpoints.
type RegistrationHandler struct {
	Catalog       *catalog.Catalog
	Counts        *availability.Counts
	Submitter     *registration.Submitter
	Registrations RegistrationLister
	Seats         SeatLister
	Logger        *slog.Logger
}

func (h *RegistrationHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// ListEvents returns every catalog event with its current registration
// count, remaining seats and display label.  Response JSON contains an
// "items" array.
func (h *RegistrationHandler) ListEvents(c echo.Context) error {
	items := availability.Describe(h.Catalog, h.Counts.Snapshot())
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListColleges returns the selectable colleges and years of study.
func (h *RegistrationHandler) ListColleges(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"colleges": h.Catalog.Colleges,
		"years":    catalog.Years(),
	})
}

// Submit validates and stores one registration.
//
//	201 stored; body carries the success notice
//	400 validation failure; body names the field
//	409 selected event is full, or a submission for the same email is in flight
//	502 the store rejected the write; safe to resubmit
func (h *RegistrationHandler) Submit(c echo.Context) error {
	var form registration.Form
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	notice, err := h.Submitter.Submit(c.Request().Context(), &form)
	if err == nil {
		return c.JSON(http.StatusCreated, echo.Map{"notice": notice})
	}

	var ve *registration.ValidationError
	switch {
	case errors.As(err, &ve) && ve.Full:
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       ve.Message,
			"event_index": ve.EventIndex,
			"notice":      notice,
		})
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Message, "field": ve.Field, "notice": notice}
		if ve.EventIndex >= 0 {
			body["event_index"] = ve.EventIndex
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, registration.ErrSubmitInFlight):
		return c.JSON(http.StatusConflict, echo.Map{"error": "submission already in progress", "notice": notice})
	default:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "registration failed", "notice": notice})
	}
}

// ListRegistrations returns recent registrations for administrators.  The
// optional ?limit= query parameter caps the result (default 100, max 1000).
func (h *RegistrationHandler) ListRegistrations(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = min(n, maxListLimit)
	}
	items, err := h.Registrations.List(c.Request().Context(), limit)
	if err != nil {
		h.logger().Error("list registrations failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// seatView is one row of the admin seat listing.
type seatView struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Taken     int    `json:"taken"`
	Local     int    `json:"local_count"`
	Remaining int    `json:"remaining"`
}

// ListSeats returns the store's seat accounting next to the locally tracked
// count for every event, so drift between the two is visible.
func (h *RegistrationHandler) ListSeats(c echo.Context) error {
	rows, err := h.Seats.List(c.Request().Context())
	if err != nil {
		h.logger().Error("list event seats failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]seatView, 0, len(rows))
	for _, r := range rows {
		v := seatView{
			Index:     r.EventIndex,
			Capacity:  r.Capacity,
			Taken:     r.Taken,
			Local:     h.Counts.Get(r.EventIndex),
			Remaining: max(r.Capacity-r.Taken, 0),
		}
		if ev, ok := h.Catalog.Lookup(r.EventIndex); ok {
			v.Name = ev.Name
		}
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

package fhirsync

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/platform/fhir"
)

type Handler struct {
	scheduler *Scheduler
	patients  identity.PatientRepository
}

func NewHandler(scheduler *Scheduler, patients identity.PatientRepository) *Handler {
	return &Handler{scheduler: scheduler, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/sync/:fhir_id", h.GetStatus)
	api.POST("/sync/:fhir_id", h.TriggerSync, manualSyncLimiter())
}

// manualSyncLimiter throttles manual passes per client so the remote server
// is not hammered through the API.
func manualSyncLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Every(5 * time.Second),
			Burst:     2,
			ExpiresIn: 10 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, fhir.ThrottleOutcome())
		},
	})
}

func (h *Handler) GetStatus(c echo.Context) error {
	st, err := h.scheduler.Status(c.Request().Context(), c.Param("fhir_id"))
	if errors.Is(err, ErrStatusNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no sync recorded for patient")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

// TriggerSync runs a pass now and returns its report. The report is returned
// with 502 when the pass failed against the remote server.
func (h *Handler) TriggerSync(c echo.Context) error {
	ctx := c.Request().Context()
	fhirID := c.Param("fhir_id")

	p, err := h.patients.GetByFHIRID(ctx, fhirID)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rep, err := h.scheduler.SyncNow(ctx, p)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return c.JSON(http.StatusConflict, fhir.ConflictOutcome("a sync pass is already running for this patient"))
	case err != nil && rep != nil:
		return c.JSON(http.StatusBadGateway, rep)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

package healthrecord

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/healthsync/internal/domain/identity"
)

// PatientFinder resolves a remote patient id to the local patient.
type PatientFinder interface {
	GetByFHIRID(ctx context.Context, fhirID string) (*identity.Patient, error)
}

type Handler struct {
	stores   *Stores
	patients PatientFinder
}

func NewHandler(stores *Stores, patients PatientFinder) *Handler {
	return &Handler{stores: stores, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:fhir_id/records", h.ListLinked)
}

// ListLinked returns the records synced from the remote health system.
// User-entered rows are not included.
func (h *Handler) ListLinked(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.patients.GetByFHIRID(ctx, c.Param("fhir_id"))
	if errors.Is(err, identity.ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	snap, err := h.stores.Snapshot(ctx, p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/healthsync/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.GetMe)
	api.GET("/patients/:fhir_id", h.GetPatient)
	api.PUT("/patients/:fhir_id/profile", h.UpdateProfile)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatientByFHIRID(c.Request().Context(), c.Param("fhir_id"))
	if err != nil {
		return patientError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetMe returns the patient owned by the authenticated user.
func (h *Handler) GetMe(c echo.Context) error {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no user in request")
	}
	p, err := h.svc.GetPatientByUserID(c.Request().Context(), uid)
	if err != nil {
		return patientError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var pr Profile
	if err := c.Bind(&pr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), c.Param("fhir_id"), pr)
	if err != nil {
		return patientError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func patientError(err error) error {
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if errors.Is(err, ErrInvalidProfile) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

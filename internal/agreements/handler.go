package agreements

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
	"github.com/leasecraft/leasecraft/internal/platform/httpx"
	"github.com/leasecraft/leasecraft/internal/shared"
)

// Handler manages agreement endpoints. Routes are not permission-gated by
// middleware: the service itself decides per record, so "own"-scoped
// principals can pass through and still only reach what they own.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers agreement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{agreementID}", h.get)
	r.Put("/{agreementID}", h.update)
	r.Delete("/{agreementID}", h.delete)
}

type agreementResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	PropertyAddress string    `json:"property_address"`
	Status          string    `json:"status"`
	RentAmountCents int64     `json:"rent_amount_cents"`
	CustomerID      *int64    `json:"customer_id,omitempty"`
	UserID          *int64    `json:"user_id,omitempty"`
	OwnerID         *int64    `json:"owner_id,omitempty"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(a Agreement) agreementResponse {
	return agreementResponse{
		ID: a.ID, Title: a.Title, PropertyAddress: a.PropertyAddress,
		Status: string(a.Status), RentAmountCents: a.RentAmountCents,
		CustomerID: a.CustomerID, UserID: a.UserID, OwnerID: a.OwnerID,
		CreatedBy: a.CreatedBy, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	base := accesscontrol.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		base = base.Where("status = ?", status)
	}
	agreements, err := h.service.List(r.Context(), principalID, base)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]agreementResponse, 0, len(agreements))
	for _, a := range agreements {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type agreementRequest struct {
	Title           string `json:"title" validate:"required,min=3"`
	PropertyAddress string `json:"property_address" validate:"required"`
	Status          string `json:"status" validate:"omitempty,oneof=draft active terminated"`
	RentAmountCents int64  `json:"rent_amount_cents" validate:"gte=0"`
	CustomerID      *int64 `json:"customer_id"`
	UserID          *int64 `json:"user_id"`
	OwnerID         *int64 `json:"owner_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	var req agreementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), principalID, Agreement{
		Title:           req.Title,
		PropertyAddress: req.PropertyAddress,
		Status:          Status(req.Status),
		RentAmountCents: req.RentAmountCents,
		CustomerID:      req.CustomerID,
		UserID:          req.UserID,
		OwnerID:         req.OwnerID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "agreementID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Agreement ID", err.Error())
		return
	}
	a, err := h.service.Get(r.Context(), principalID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "agreementID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Agreement ID", err.Error())
		return
	}
	var req agreementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), principalID, Agreement{
		ID:              id,
		Title:           req.Title,
		PropertyAddress: req.PropertyAddress,
		Status:          Status(req.Status),
		RentAmountCents: req.RentAmountCents,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "agreementID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Agreement ID", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), principalID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccessDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, accesscontrol.ErrPrincipalNotFound):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("agreements request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

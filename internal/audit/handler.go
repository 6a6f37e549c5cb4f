package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
	"github.com/leasecraft/leasecraft/internal/platform/httpx"
	"github.com/leasecraft/leasecraft/internal/shared"
)

const rateLimit = 30
const rateWindow = time.Minute

// Handler serves audit trail reads.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      accesscontrol.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw accesscontrol.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers the audit trail endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(h.mw.RequireAny(accesscontrol.PermAuditView))
		gr.Use(limiter)
		gr.Get("/audit", h.handleTrail)
	})
}

type entryResponse struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	ActorID    int64          `json:"actor_id"`
	Diff       map[string]any `json:"diff,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := TrailFilters{
		EntityID: q.Get("entity_id"),
		Entity:   q.Get("entity"),
		Action:   q.Get("action"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filters.PageSize = size
	}
	result, err := h.service.Trail(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit trail", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	rows := make([]entryResponse, 0, len(result.Rows))
	for _, e := range result.Rows {
		rows = append(rows, entryResponse{
			ID: e.ID, Action: e.Action, Entity: e.Entity, EntityID: e.EntityID,
			ActorID: e.ActorID, Diff: e.Diff, Meta: e.Meta, OccurredAt: e.OccurredAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows, "paging": result.Paging})
}

func rateLimitKey(r *http.Request) (string, error) {
	if id, ok := shared.PrincipalIDFromContext(r.Context()); ok {
		return "principal:" + strconv.FormatInt(id, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

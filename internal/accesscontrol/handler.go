package accesscontrol

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leasecraft/leasecraft/internal/platform/httpx"
	"github.com/leasecraft/leasecraft/internal/shared"
)

// Handler exposes the administrative API: catalog registration, role
// management, role assignment and per-principal overrides.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *Resolver
	engine   *Engine
	mw       Middleware
	validate *validator.Validate
	titler   cases.Caser
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *Resolver, engine *Engine, mw Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		resolver: resolver,
		engine:   engine,
		mw:       mw,
		validate: validator.New(),
		titler:   cases.Title(language.English),
	}
}

// MountRoutes registers the administrative routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPermissionsView))
		r.Get("/permissions", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPermissionsEdit))
		r.Post("/permissions", h.registerPermission)
		r.Patch("/permissions/{code}", h.updatePermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermRolesView))
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{roleID}/permissions", h.rolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermRolesEdit))
		r.Post("/roles", h.createRole)
		r.Delete("/roles/{roleID}", h.deleteRole)
		r.Put("/roles/{roleID}/permissions/{code}", h.assignPermission)
		r.Delete("/roles/{roleID}/permissions/{code}", h.revokePermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPrincipalsView))
		r.Get("/principals/{principalID}/permissions", h.resolvePermissions)
		r.Get("/principals/{principalID}/overrides", h.listOverrides)
		r.Post("/access/check", h.checkAccess)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPrincipalsEdit))
		r.Put("/principals/{principalID}/roles/{roleID}", h.assignRole)
		r.Delete("/principals/{principalID}/roles/{roleID}", h.removeRole)
		r.Put("/principals/{principalID}/overrides/{code}", h.setOverride)
		r.Delete("/principals/{principalID}/overrides/{code}", h.clearOverride)
	})
}

type permissionResponse struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsBypass    bool   `json:"is_bypass"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, Code: p.Code, Description: p.Description, CreatedAt: p.CreatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type registerPermissionRequest struct {
	Code        string `json:"code" validate:"required,min=3"`
	Description string `json:"description"`
}

func (h *Handler) registerPermission(w http.ResponseWriter, r *http.Request) {
	var req registerPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.RegisterPermission(r.Context(), h.actorID(r), req.Code, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, permissionResponse{ID: perm.ID, Code: perm.Code, Description: perm.Description, CreatedAt: perm.CreatedAt})
}

type updatePermissionRequest struct {
	Description string `json:"description" validate:"required"`
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	var req updatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.UpdatePermissionDescription(r.Context(), h.actorID(r), chi.URLParam(r, "code"), req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionResponse{ID: perm.ID, Code: perm.Code, Description: perm.Description, CreatedAt: perm.CreatedAt})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, h.toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
	IsBypass    bool   `json:"is_bypass"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), h.actorID(r), req.Name, req.Description, req.IsBypass)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.pathID(r, "roleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", err.Error())
		return
	}
	if err := h.service.DeleteRole(r.Context(), h.actorID(r), roleID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.pathID(r, "roleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", err.Error())
		return
	}
	codes, err := h.service.PermissionsOf(r.Context(), roleID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role_id": roleID, "permissions": codes})
}

func (h *Handler) assignPermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.pathID(r, "roleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", err.Error())
		return
	}
	if err := h.service.AssignPermission(r.Context(), h.actorID(r), roleID, chi.URLParam(r, "code")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.pathID(r, "roleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", err.Error())
		return
	}
	if err := h.service.RevokePermission(r.Context(), h.actorID(r), roleID, chi.URLParam(r, "code")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolvePermissions(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.pathID(r, "principalID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal ID", err.Error())
		return
	}
	set, err := h.resolver.Resolve(r.Context(), principalID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"principal_id": principalID, "permissions": set.Codes()})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.pathID(r, "principalID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal ID", err.Error())
		return
	}
	roleID, err := h.pathID(r, "roleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), h.actorID(r), principalID, roleID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.pathID(r, "principalID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal ID", err.Error())
		return
	}
	roleID, err := h.pathID(r, "roleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", err.Error())
		return
	}
	if err := h.service.RemoveRole(r.Context(), h.actorID(r), principalID, roleID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listOverrides(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.pathID(r, "principalID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal ID", err.Error())
		return
	}
	overrides, err := h.service.OverridesFor(r.Context(), principalID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"principal_id": principalID, "overrides": overrides})
}

type setOverrideRequest struct {
	Kind string `json:"kind" validate:"required,oneof=ADD REMOVE"`
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.pathID(r, "principalID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal ID", err.Error())
		return
	}
	var req setOverrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetOverride(r.Context(), h.actorID(r), principalID, chi.URLParam(r, "code"), OverrideKind(req.Kind)); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearOverride(w http.ResponseWriter, r *http.Request) {
	principalID, err := h.pathID(r, "principalID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal ID", err.Error())
		return
	}
	if err := h.service.ClearOverride(r.Context(), h.actorID(r), principalID, chi.URLParam(r, "code")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkAccessRequest struct {
	PrincipalID  int64  `json:"principal_id" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required"`
	RecordID     int64  `json:"record_id"`
	CustomerID   *int64 `json:"customer_id"`
	UserID       *int64 `json:"user_id"`
	OwnerID      *int64 `json:"owner_id"`
	Action       string `json:"action" validate:"required,oneof=view edit delete"`
}

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	var req checkAccessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	record := Record{
		Type:       req.ResourceType,
		ID:         req.RecordID,
		CustomerID: req.CustomerID,
		UserID:     req.UserID,
		OwnerID:    req.OwnerID,
	}
	decision, err := h.engine.CheckAccess(r.Context(), req.PrincipalID, record, Action(req.Action))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}

func (h *Handler) toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		DisplayName: h.titler.String(role.Name),
		Description: role.Description,
		IsBypass:    role.IsBypass,
	}
}

func (h *Handler) actorID(r *http.Request) int64 {
	id, _ := shared.PrincipalIDFromContext(r.Context())
	return id
}

func (h *Handler) pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPermissionNotFound),
		errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrPrincipalNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicatePermission),
		errors.Is(err, ErrDuplicateRoleName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrRoleInUse):
		httpx.Problem(w, http.StatusConflict, "Role In Use", err.Error())
	case errors.Is(err, ErrInvalidOverrideKind):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Override Kind", err.Error())
	default:
		h.logger.Error("accesscontrol request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/catalog"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/repository"
	"github.com/opensource-finance/cropadvisor/internal/validation"
	"github.com/opensource-finance/cropadvisor/internal/worker"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies are the collaborators the handlers use. Store, Cache, Bus and
// Invalidator are optional.
type Dependencies struct {
	Advisor *advisor.Advisor

	// Catalog is the read path used for listings.
	Catalog domain.Catalog

	// Store is set when the catalog lives in the database.
	Store domain.CatalogStore

	Cache       domain.Cache
	Bus         domain.EventBus
	Invalidator worker.Invalidator
}

// Handler holds dependencies for API handlers.
type Handler struct {
	advisor     *advisor.Advisor
	catalog     domain.Catalog
	store       domain.CatalogStore
	cache       domain.Cache
	bus         domain.EventBus
	invalidator worker.Invalidator
	version     string
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies, version string) *Handler {
	return &Handler{
		advisor:     deps.Advisor,
		catalog:     deps.Catalog,
		store:       deps.Store,
		cache:       deps.Cache,
		bus:         deps.Bus,
		invalidator: deps.Invalidator,
		version:     version,
	}
}

// Recommend handles POST /recommend requests.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecommendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	in := req.Input()
	if err := validation.ValidateStruct(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.advisor.Recommend(ctx, in)
	if err != nil {
		slog.Error("recommendation failed",
			"error", err,
			"trace_id", GetTraceID(ctx),
		)
		writeError(w, http.StatusInternalServerError, "recommendation failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCropNames returns the sorted, unique crop names of the catalog.
func (h *Handler) ListCropNames(w http.ResponseWriter, r *http.Request) {
	crops, err := h.catalog.ListCrops(r.Context())
	if err != nil {
		slog.Error("failed to list crops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	writeJSON(w, http.StatusOK, catalog.Names(crops))
}

// Calendar returns the farming calendar of one crop. The sowing_date query
// parameter is optional.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	events, err := h.advisor.Calendar(r.Context(), name, r.URL.Query().Get("sowing_date"))
	if err != nil {
		if errors.Is(err, advisor.ErrCropNotFound) {
			writeError(w, http.StatusNotFound, "crop not found")
			return
		}
		slog.Error("failed to build calendar", "crop", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"crop":     name,
		"calendar": events,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready reports whether the catalog can be loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	crops, err := h.catalog.ListCrops(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready": false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ready": true,
		"crops": len(crops),
	})
}

// ListCatalog returns every catalog record in catalog order.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	crops, err := h.catalog.ListCrops(r.Context())
	if err != nil {
		slog.Error("failed to list catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"crops": crops,
		"count": len(crops),
	})
}

// GetCrop returns one catalog record.
func (h *Handler) GetCrop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	crop, err := h.advisor.Find(r.Context(), name)
	if err != nil {
		if errors.Is(err, advisor.ErrCropNotFound) {
			writeError(w, http.StatusNotFound, "crop not found")
			return
		}
		slog.Error("failed to get crop", "crop", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	writeJSON(w, http.StatusOK, crop)
}

// SaveCrop creates or replaces a catalog record.
func (h *Handler) SaveCrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog is read-only: repository not available")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	crop, err := catalog.DecodeCrop(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveCrop(ctx, crop); err != nil {
		slog.Error("failed to save crop", "crop", crop.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save crop")
		return
	}

	h.catalogChanged(ctx, domain.CatalogChange{Action: "save", Crop: crop.Name})

	slog.Info("crop saved", "crop", crop.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"crop":    crop,
	})
}

// DeleteCrop removes a catalog record.
func (h *Handler) DeleteCrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog is read-only: repository not available")
		return
	}

	if err := h.store.DeleteCrop(ctx, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "crop not found")
			return
		}
		slog.Error("failed to delete crop", "crop", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete crop")
		return
	}

	h.catalogChanged(ctx, domain.CatalogChange{Action: "delete", Crop: name})

	slog.Info("crop deleted", "crop", name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": name,
	})
}

// ReloadCatalog drops cached catalog state on every node and reloads it.
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.catalogChanged(ctx, domain.CatalogChange{Action: "reload"})

	crops, err := h.catalog.ListCrops(ctx)
	if err != nil {
		slog.Error("failed to reload catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload catalog: "+err.Error())
		return
	}

	slog.Info("catalog reloaded", "count", len(crops))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "catalog reloaded successfully",
		"count":   len(crops),
	})
}

// catalogChanged invalidates the local cache and tells the other nodes.
func (h *Handler) catalogChanged(ctx context.Context, change domain.CatalogChange) {
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx); err != nil {
			slog.Error("failed to invalidate catalog cache", "error", err)
		}
	}

	if h.bus != nil {
		if err := worker.PublishChange(ctx, h.bus, change); err != nil {
			slog.Error("failed to publish catalog change",
				"action", change.Action,
				"error", err,
			)
		}
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

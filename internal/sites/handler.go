package sites

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthsched/opd-platform/internal/slotwindow"
	"github.com/healthsched/opd-platform/pkg/logging"
)

// Handler exposes site configuration and the daily window listing.
type Handler struct {
	store  *Store
	logger *logging.Logger
	nowFn  func() time.Time
}

// NewHandler creates the sites HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("sites: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger, nowFn: time.Now}
}

// Routes mounts the public site surface.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sites/{siteID}/windows", h.ListWindows)
	r.Get("/sites/{siteID}/config", h.GetConfig)
}

// AdminRoutes mounts configuration updates.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Put("/sites/{siteID}/config", h.SetConfig)
}

type windowEntry struct {
	Number   int    `json:"number"`
	Label    string `json:"label"`
	Bookable bool   `json:"bookable"`
}

// ListWindows handles GET /sites/{siteID}/windows. Bookability is judged
// against the site's local clock.
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	cfg, err := h.store.Get(r.Context(), siteID)
	if err != nil {
		h.logger.Error("site config load failed", "site_id", siteID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	now := h.nowFn().In(cfg.Location())
	generated, err := slotwindow.Generate(cfg.OpenLabel, cfg.CloseLabel, cfg.WindowMinutes, now.Hour()*60+now.Minute())
	if err != nil {
		h.logger.Error("window generation failed", "site_id", siteID, "error", err)
		http.Error(w, `{"error":"invalid site hours"}`, http.StatusInternalServerError)
		return
	}

	entries := make([]windowEntry, 0, len(generated))
	for _, g := range generated {
		entries = append(entries, windowEntry{Number: g.Number, Label: g.Label, Bookable: g.Bookable})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"siteId":  siteID,
		"date":    now.Format("2006-01-02"),
		"windows": entries,
	})
}

// GetConfig handles GET /sites/{siteID}/config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	cfg, err := h.store.Get(r.Context(), siteID)
	if err != nil {
		h.logger.Error("site config load failed", "site_id", siteID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SetConfig handles PUT /sites/{siteID}/config.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	cfg.SiteID = siteID

	// The labels must parse, or every booking against this site would fail.
	// Normalize first, same as the window generator does when reading them.
	if _, err := slotwindow.ParseClock(slotwindow.Normalize(cfg.OpenLabel)); err != nil {
		http.Error(w, `{"error":"invalid open label"}`, http.StatusBadRequest)
		return
	}
	if _, err := slotwindow.ParseClock(slotwindow.Normalize(cfg.CloseLabel)); err != nil {
		http.Error(w, `{"error":"invalid close label"}`, http.StatusBadRequest)
		return
	}
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = 180
	}

	if err := h.store.Set(r.Context(), &cfg); err != nil {
		h.logger.Error("site config save failed", "site_id", siteID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("site config updated", "site_id", siteID)
	writeJSON(w, http.StatusOK, &cfg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package prebook

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/healthsched/opd-platform/pkg/logging"
)

// Handler exposes intent registration and lookup.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates the prebook HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("prebook: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes mounts the prebook surface.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sites/{siteID}/prebook", h.Register)
	r.Get("/sites/{siteID}/prebook/{contactNumber}", h.Lookup)
}

// Register handles POST /sites/{siteID}/prebook.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var intent Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	intent.SiteID = strings.TrimSpace(chi.URLParam(r, "siteID"))

	saved, err := h.store.Register(r.Context(), intent)
	if err != nil {
		if errors.Is(err, ErrInvalidIntent) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("intent registration failed", "site_id", intent.SiteID, "error", err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("booking intent registered", "site_id", saved.SiteID, "contact", saved.ContactNumber)
	writeJSON(w, http.StatusCreated, saved)
}

// Lookup handles GET /sites/{siteID}/prebook/{contactNumber}.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	contact := strings.TrimSpace(chi.URLParam(r, "contactNumber"))

	intent, err := h.store.Lookup(r.Context(), siteID, contact)
	if err != nil {
		h.logger.Error("intent lookup failed", "site_id", siteID, "error", err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if intent == nil {
		writeError(w, "no pending intent", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/apkanwar/BetterChallenges/internal/domain"
	"github.com/apkanwar/BetterChallenges/internal/service"
	"github.com/apkanwar/BetterChallenges/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler provides HTTP handlers for the challenge API
type Handler struct {
	service *service.ChallengeService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.ChallengeService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Challenge operations
		r.Route("/challenges", func(r chi.Router) {
			r.Post("/", h.CreateChallenge)
			r.Get("/", h.ListChallenges)

			r.Route("/{challengeID}", func(r chi.Router) {
				r.Get("/", h.GetChallenge)
				r.Delete("/", h.DeleteChallenge)
				r.Post("/invite", h.InviteContacts)
				r.Get("/leaderboard", h.GetLeaderboard)
				r.Get("/leaderboard/cached", h.GetCachedLeaderboard)
				r.Get("/participants/{participantID}", h.GetParticipantStanding)
			})
		})

		// Snapshot operations
		r.Post("/snapshots", h.SubmitSnapshot)
		r.Post("/snapshots/refresh", h.RefreshSnapshot)

		// Contact directory
		r.Get("/contacts", h.ListContacts)
		r.Post("/contacts", h.AddContact)

		// Capability grants
		r.Route("/permissions/{capability}", func(r chi.Router) {
			r.Get("/", h.GetAuthorization)
			r.Post("/request", h.RequestAuthorization)
		})

		// Device identity
		r.Get("/identity", h.GetIdentity)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeDomainError maps the error taxonomy onto HTTP status codes
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFoundError(err) || errors.Is(err, domain.ErrNoDataAvailable):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsAuthorizationError(err):
		h.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrSourceUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domain.ErrInvalidChallenge),
		errors.Is(err, domain.ErrInvalidSnapshot),
		errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	}
	if challengeID := r.URL.Query().Get("challenge_id"); challengeID != "" {
		stats["challenge_id"] = challengeID
		stats["subscribers"] = h.hub.GetSubscriberCount(challengeID)
	}
	h.writeSuccess(w, stats)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// CreateChallenge handles challenge creation
func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req service.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	challenge, err := h.service.CreateChallenge(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    challenge,
	})
}

// ListChallenges returns the challenge collection, optionally by phase
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	var phase domain.Phase
	if phaseStr := r.URL.Query().Get("phase"); phaseStr != "" {
		phase = domain.Phase(phaseStr)
		if phase != domain.PhaseUpcoming && phase != domain.PhaseActive && phase != domain.PhaseCompleted {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
	}

	h.writeSuccess(w, h.service.ListChallenges(phase))
}

// GetChallenge returns a challenge by ID
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")
	if challengeID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	challenge, err := h.service.GetChallenge(challengeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, challenge)
}

// DeleteChallenge removes a challenge
func (h *Handler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")
	if challengeID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.DeleteChallenge(r.Context(), challengeID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// inviteRequest carries directory references for an invite flow
type inviteRequest struct {
	ContactIDs []string `json:"contact_ids"`
}

// InviteContacts admits directory candidates into a challenge roster
func (h *Handler) InviteContacts(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")
	if challengeID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if len(req.ContactIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	challenge, err := h.service.InviteContacts(r.Context(), challengeID, req.ContactIDs)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, challenge)
}

// GetLeaderboard returns a challenge's ranked board for a horizon
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")
	if challengeID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	horizon := domain.HorizonTotal
	if horizonStr := r.URL.Query().Get("horizon"); horizonStr != "" {
		horizon = domain.Horizon(horizonStr)
	}

	rows, err := h.service.Leaderboard(r.Context(), challengeID, horizon)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, rows)
}

// GetCachedLeaderboard serves the Redis board mirror without recomputing
func (h *Handler) GetCachedLeaderboard(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")
	if challengeID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	horizon := domain.HorizonTotal
	if horizonStr := r.URL.Query().Get("horizon"); horizonStr != "" {
		horizon = domain.Horizon(horizonStr)
	}

	entries, err := h.service.CachedBoard(r.Context(), challengeID, horizon)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, entries)
}

// GetParticipantStanding returns one participant's ranked row
func (h *Handler) GetParticipantStanding(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeID")
	participantID := chi.URLParam(r, "participantID")
	if challengeID == "" || participantID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	horizon := domain.HorizonTotal
	if horizonStr := r.URL.Query().Get("horizon"); horizonStr != "" {
		horizon = domain.Horizon(horizonStr)
	}

	row, err := h.service.ParticipantStanding(challengeID, participantID, horizon)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, row)
}

// SubmitSnapshot ingests a device-pushed daily ring snapshot
func (h *Handler) SubmitSnapshot(w http.ResponseWriter, r *http.Request) {
	var submission domain.SnapshotSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.SubmitSnapshot(r.Context(), submission); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "accepted"})
}

// RefreshSnapshot pulls the current user's snapshot from the health source
func (h *Handler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.RefreshSnapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, snapshot)
}

// ListContacts returns invite candidates from the directory
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	candidates, err := h.service.Contacts(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, candidates)
}

// AddContact seeds one directory record
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	var candidate domain.ContactCandidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.AddContact(r.Context(), candidate); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    candidate,
	})
}

// GetAuthorization reports a capability's grant state
func (h *Handler) GetAuthorization(w http.ResponseWriter, r *http.Request) {
	capability := domain.Capability(chi.URLParam(r, "capability"))

	auth, err := h.service.AuthorizationState(r.Context(), capability)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, auth)
}

// RequestAuthorization asks a capability's collaborator for a grant
func (h *Handler) RequestAuthorization(w http.ResponseWriter, r *http.Request) {
	capability := domain.Capability(chi.URLParam(r, "capability"))

	auth, err := h.service.RequestAuthorization(r.Context(), capability)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, auth)
}

// GetIdentity returns the device's stable participant identifier
func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"user_id": h.service.CurrentUserID()})
}

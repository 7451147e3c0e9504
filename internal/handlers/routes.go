package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealthz)

	// WebSocket
	r.Get("/ws", h.Hub.ServeWs)

	// API (bearer token required)
	r.Route("/api", func(r chi.Router) {
		r.Use(h.Auth.Middleware)

		// Rooms
		r.Post("/rooms", h.handleCreateRoom)
		r.Get("/rooms/{roomID}", h.handleGetRoom)
		r.Post("/rooms/{roomID}/leave", h.handleLeaveRoom)
		r.Post("/rooms/{roomID}/invite", h.handleInvite)
		r.Get("/rooms/{roomID}/invite-link", h.handleInviteLink)
		r.Get("/rooms/{roomID}/invite-qr", h.handleInviteQR)
		r.Post("/rooms/{roomID}/join-request", h.handleRequestJoin)
		r.Delete("/rooms/{roomID}/join-request", h.handleCancelJoinRequest)

		// Ballots
		r.Get("/rooms/{roomID}/ballots", h.handleListBallots)
		r.Post("/rooms/{roomID}/ballots", h.handleCreateBallot)
		r.Get("/ballots/{ballotID}", h.handleGetBallot)
		r.Post("/ballots/{ballotID}/vote", h.handleCastVote)

		// Notifications
		r.Get("/notifications", h.handleListNotifications)
		r.Post("/notifications/{notificationID}/read", h.handleMarkNotificationRead)
		r.Post("/notifications/action/invitation/{notificationID}", h.handleInvitationAction)
		r.Post("/notifications/action/join-request/{notificationID}", h.handleJoinRequestAction)
	})

	return r
}

// handleHealthz reports liveness
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

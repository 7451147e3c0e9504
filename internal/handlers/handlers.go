package handlers

import (
	"github.com/agoranet/agora/internal/auth"
	"github.com/agoranet/agora/internal/services"
	"github.com/agoranet/agora/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Room         services.RoomServicer
	Ballot       services.BallotServicer
	Voting       services.VotingServicer
	Membership   services.MembershipServicer
	Notification services.NotificationServicer
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	room services.RoomServicer,
	ballot services.BallotServicer,
	voting services.VotingServicer,
	membership services.MembershipServicer,
	notification services.NotificationServicer,
	authn *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Room:         room,
		Ballot:       ballot,
		Voting:       voting,
		Membership:   membership,
		Notification: notification,
		Auth:         authn,
		Hub:          hub,
		Log:          log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

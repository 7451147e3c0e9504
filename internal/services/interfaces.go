package services

import (
	"context"

	"github.com/agoranet/agora/internal/models"
)

// Broadcaster pushes events to connected clients. Implementations must not
// block the caller.
type Broadcaster interface {
	BroadcastMessage(msgType string, payload interface{})
}

// RoomServicer defines the room service interface
type RoomServicer interface {
	Create(ctx context.Context, actorID string, params RoomParams) (*models.Room, error)
	Get(ctx context.Context, roomID int64, actorID string) (*models.Room, error)
	Leave(ctx context.Context, roomID int64, actorID string) error
	InviteLink(ctx context.Context, roomID int64, actorID string) (*InviteLink, error)
	InviteQR(ctx context.Context, roomID int64, actorID string) ([]byte, error)
}

// BallotServicer defines the ballot service interface
type BallotServicer interface {
	Create(ctx context.Context, roomID int64, actorID string, params BallotParams) (*models.Ballot, error)
	Get(ctx context.Context, ballotID int64, actorID string) (*models.Ballot, error)
	ListForRoom(ctx context.Context, roomID int64, actorID string) ([]models.Ballot, error)
}

// VotingServicer defines the vote casting interface
type VotingServicer interface {
	CastVote(ctx context.Context, ballotID, roomID int64, voterID string, choiceIDs []int64) (*models.Ballot, error)
}

// MembershipServicer defines the invitation and join-request workflows
type MembershipServicer interface {
	Invite(ctx context.Context, roomID int64, inviterID, targetUsername string, role models.Role) error
	ResolveInvitation(ctx context.Context, notificationID int64, actorID string, action InvitationAction) error
	RequestJoin(ctx context.Context, roomID int64, requesterID string) error
	CancelJoinRequest(ctx context.Context, roomID int64, requesterID string) error
	ResolveJoinRequest(ctx context.Context, notificationID int64, actorID string, action JoinRequestAction) error
}

// NotificationServicer defines the notification read surface
type NotificationServicer interface {
	List(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID int64, userID string) error
}

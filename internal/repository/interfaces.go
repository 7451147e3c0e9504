package repository

import (
	"context"

	"github.com/agoranet/agora/internal/models"
)

// UserRepository defines user identity data operations
type UserRepository interface {
	UpsertUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// RoomRepository defines room and membership data operations
type RoomRepository interface {
	CreateRoom(ctx context.Context, name, description, adminID string, visibility models.Visibility, inviteToken string) (int64, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	AddMember(ctx context.Context, roomID int64, userID string, role models.Role) (added bool, err error)
	RemoveMember(ctx context.Context, roomID int64, userID string) (removed bool, err error)
	MemberRole(ctx context.Context, roomID int64, userID string) (models.Role, bool, error)
}

// BallotRepository defines ballot and vote ledger data operations
type BallotRepository interface {
	CreateBallot(ctx context.Context, ballot *models.Ballot) (int64, error)
	GetBallot(ctx context.Context, id int64) (*models.Ballot, error)
	ListBallotsForRoom(ctx context.Context, roomID int64) ([]models.Ballot, error)
	// CastVote records the ledger entries and increments the tallies in a
	// single transaction. Returns ErrDuplicate if the user already has a
	// ledger entry on the ballot.
	CastVote(ctx context.Context, ballotID int64, userID string, choiceIDs []int64) error
}

// NotificationRepository defines notification data operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) (int64, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64, userID string) (bool, error)
	// ResolveNotification flips is_read and rewrites the message, but only if
	// the notification is still unresolved. Returns false when another caller
	// already resolved it.
	ResolveNotification(ctx context.Context, id int64, message, requestStatus string) (bool, error)
	HasPendingInvitation(ctx context.Context, roomID int64, targetUserID string) (bool, error)
	HasPendingJoinRequest(ctx context.Context, roomID int64, requesterID string) (bool, error)
	// DeletePendingJoinRequest removes the requester's still-unresolved join
	// request for the room. Returns false when none exists.
	DeletePendingJoinRequest(ctx context.Context, roomID int64, requesterID string) (bool, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	UserRepository
	RoomRepository
	BallotRepository
	NotificationRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)

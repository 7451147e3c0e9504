package mock

import (
	"context"

	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database
// manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.CastVoteError = errors.New("database error")
//	svc := services.NewVotingService(log, mockRepo, nil)
//	_, err := svc.CastVote(ctx, ballotID, roomID, "user", []int64{1})
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== User Errors =====
	UpsertUserError        error
	GetUserError           error
	GetUserByUsernameError error

	// ===== Room Errors =====
	CreateRoomError   error
	GetRoomError      error
	AddMemberError    error
	RemoveMemberError error
	MemberRoleError   error

	// ===== Ballot Errors =====
	CreateBallotError       error
	GetBallotError          error
	ListBallotsForRoomError error
	CastVoteError           error

	// ===== Notification Errors =====
	CreateNotificationError       error
	GetNotificationError          error
	ListNotificationsError        error
	MarkNotificationReadError     error
	ResolveNotificationError      error
	HasPendingInvitationError     error
	HasPendingJoinRequestError    error
	DeletePendingJoinRequestError error
}

// NewRepository creates an error-injecting wrapper around a real repository
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{FullRepository: real}
}

func (m *Repository) UpsertUser(ctx context.Context, user models.User) error {
	if m.UpsertUserError != nil {
		return m.UpsertUserError
	}
	return m.FullRepository.UpsertUser(ctx, user)
}

func (m *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}
	return m.FullRepository.GetUser(ctx, id)
}

func (m *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetUserByUsernameError != nil {
		return nil, m.GetUserByUsernameError
	}
	return m.FullRepository.GetUserByUsername(ctx, username)
}

func (m *Repository) CreateRoom(ctx context.Context, name, description, adminID string, visibility models.Visibility, inviteToken string) (int64, error) {
	if m.CreateRoomError != nil {
		return 0, m.CreateRoomError
	}
	return m.FullRepository.CreateRoom(ctx, name, description, adminID, visibility, inviteToken)
}

func (m *Repository) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	if m.GetRoomError != nil {
		return nil, m.GetRoomError
	}
	return m.FullRepository.GetRoom(ctx, id)
}

func (m *Repository) AddMember(ctx context.Context, roomID int64, userID string, role models.Role) (bool, error) {
	if m.AddMemberError != nil {
		return false, m.AddMemberError
	}
	return m.FullRepository.AddMember(ctx, roomID, userID, role)
}

func (m *Repository) RemoveMember(ctx context.Context, roomID int64, userID string) (bool, error) {
	if m.RemoveMemberError != nil {
		return false, m.RemoveMemberError
	}
	return m.FullRepository.RemoveMember(ctx, roomID, userID)
}

func (m *Repository) MemberRole(ctx context.Context, roomID int64, userID string) (models.Role, bool, error) {
	if m.MemberRoleError != nil {
		return "", false, m.MemberRoleError
	}
	return m.FullRepository.MemberRole(ctx, roomID, userID)
}

func (m *Repository) CreateBallot(ctx context.Context, ballot *models.Ballot) (int64, error) {
	if m.CreateBallotError != nil {
		return 0, m.CreateBallotError
	}
	return m.FullRepository.CreateBallot(ctx, ballot)
}

func (m *Repository) GetBallot(ctx context.Context, id int64) (*models.Ballot, error) {
	if m.GetBallotError != nil {
		return nil, m.GetBallotError
	}
	return m.FullRepository.GetBallot(ctx, id)
}

func (m *Repository) ListBallotsForRoom(ctx context.Context, roomID int64) ([]models.Ballot, error) {
	if m.ListBallotsForRoomError != nil {
		return nil, m.ListBallotsForRoomError
	}
	return m.FullRepository.ListBallotsForRoom(ctx, roomID)
}

func (m *Repository) CastVote(ctx context.Context, ballotID int64, userID string, choiceIDs []int64) error {
	if m.CastVoteError != nil {
		return m.CastVoteError
	}
	return m.FullRepository.CastVote(ctx, ballotID, userID, choiceIDs)
}

func (m *Repository) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	if m.CreateNotificationError != nil {
		return 0, m.CreateNotificationError
	}
	return m.FullRepository.CreateNotification(ctx, n)
}

func (m *Repository) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	if m.GetNotificationError != nil {
		return nil, m.GetNotificationError
	}
	return m.FullRepository.GetNotification(ctx, id)
}

func (m *Repository) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	if m.ListNotificationsError != nil {
		return nil, m.ListNotificationsError
	}
	return m.FullRepository.ListNotifications(ctx, userID)
}

func (m *Repository) MarkNotificationRead(ctx context.Context, id int64, userID string) (bool, error) {
	if m.MarkNotificationReadError != nil {
		return false, m.MarkNotificationReadError
	}
	return m.FullRepository.MarkNotificationRead(ctx, id, userID)
}

func (m *Repository) ResolveNotification(ctx context.Context, id int64, message, requestStatus string) (bool, error) {
	if m.ResolveNotificationError != nil {
		return false, m.ResolveNotificationError
	}
	return m.FullRepository.ResolveNotification(ctx, id, message, requestStatus)
}

func (m *Repository) HasPendingInvitation(ctx context.Context, roomID int64, targetUserID string) (bool, error) {
	if m.HasPendingInvitationError != nil {
		return false, m.HasPendingInvitationError
	}
	return m.FullRepository.HasPendingInvitation(ctx, roomID, targetUserID)
}

func (m *Repository) HasPendingJoinRequest(ctx context.Context, roomID int64, requesterID string) (bool, error) {
	if m.HasPendingJoinRequestError != nil {
		return false, m.HasPendingJoinRequestError
	}
	return m.FullRepository.HasPendingJoinRequest(ctx, roomID, requesterID)
}

func (m *Repository) DeletePendingJoinRequest(ctx context.Context, roomID int64, requesterID string) (bool, error) {
	if m.DeletePendingJoinRequestError != nil {
		return false, m.DeletePendingJoinRequestError
	}
	return m.FullRepository.DeletePendingJoinRequest(ctx, roomID, requesterID)
}

package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/agoranet/agora/internal/errors"
	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
)

// InvitationAction is a recipient's decision on a room invitation
type InvitationAction string

const (
	InvitationAccept  InvitationAction = "accept"
	InvitationDecline InvitationAction = "decline"
)

// ParseInvitationAction validates an action string from a request
func ParseInvitationAction(s string) (InvitationAction, error) {
	switch InvitationAction(s) {
	case InvitationAccept, InvitationDecline:
		return InvitationAction(s), nil
	}
	return "", ErrInvalidAction
}

// JoinRequestAction is an admin's decision on a join request
type JoinRequestAction string

const (
	JoinRequestApprove JoinRequestAction = "approve"
	JoinRequestDecline JoinRequestAction = "decline"
)

// ParseJoinRequestAction validates an action string from a request
func ParseJoinRequestAction(s string) (JoinRequestAction, error) {
	switch JoinRequestAction(s) {
	case JoinRequestApprove, JoinRequestDecline:
		return JoinRequestAction(s), nil
	}
	return "", ErrInvalidAction
}

// MembershipServiceRepository defines the repository methods needed by MembershipService
type MembershipServiceRepository interface {
	repository.RoomRepository
	repository.NotificationRepository
	repository.UserRepository
}

// MembershipService runs the invitation and join-request state machines. Both
// are gated through a notification as the durable pending-action record:
// resolution claims the record with a conditional update before any membership
// change, so a resolved notification can never be applied twice.
type MembershipService struct {
	log  logger.Logger
	repo MembershipServiceRepository
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(log logger.Logger, repo MembershipServiceRepository) *MembershipService {
	return &MembershipService{log: log, repo: repo}
}

// Invite proposes a membership to a user on behalf of the room admin.
// The proposal lives as an unread room_invitation notification until the
// target acts on it.
func (s *MembershipService) Invite(ctx context.Context, roomID int64, inviterID, targetUsername string, role models.Role) error {
	if !role.Invitable() {
		return ErrInvalidRole
	}

	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.AdminID != inviterID {
		return ErrNotAdmin
	}

	target, err := s.repo.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(targetUsername)))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrUnknownUser
		}
		return err
	}
	if target.ID == inviterID {
		return ErrSelfInvite
	}
	if room.HasMember(target.ID) {
		return ErrAlreadyMember
	}

	pending, err := s.repo.HasPendingInvitation(ctx, roomID, target.ID)
	if err != nil {
		return err
	}
	if pending {
		return ErrPendingInvite
	}

	inviterName := s.displayName(ctx, inviterID)
	_, err = s.repo.CreateNotification(ctx, &models.Notification{
		UserID:  target.ID,
		Type:    models.NotificationRoomInvitation,
		Message: fmt.Sprintf("%s has invited you to join room %q as a %s.", inviterName, room.Name, role),
		Data: models.NotificationData{
			RoomID:       roomID,
			PerformerID:  inviterID,
			TargetUserID: target.ID,
			InvitedRole:  role,
		},
	})
	if err != nil {
		return err
	}

	s.log.Info("Invitation sent", "room_id", roomID, "target", target.Username, "role", role)
	return nil
}

// ResolveInvitation applies the recipient's decision to a pending invitation.
// Resolution is terminal: the conditional update on the notification is the
// gate, and only its winner mutates membership. Accepting an invite whose
// membership already exists is a no-op, not an error.
func (s *MembershipService) ResolveInvitation(ctx context.Context, notificationID int64, actorID string, action InvitationAction) error {
	n, err := s.getNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.Type != models.NotificationRoomInvitation || n.Data.RoomID == 0 || !n.Data.InvitedRole.Valid() {
		return ErrNotInvitation
	}
	if n.UserID != actorID {
		return ErrNotRecipient
	}
	if n.IsRead {
		return ErrAlreadyResolved
	}

	room, err := s.getRoom(ctx, n.Data.RoomID)
	if err != nil {
		return err
	}

	var message string
	if action == InvitationAccept {
		message = fmt.Sprintf("You accepted the invitation to join %s.", room.Name)
	} else {
		message = fmt.Sprintf("You declined the invitation to join %s.", room.Name)
	}

	// Claim the notification before touching membership. A concurrent
	// resolver loses here and never reaches the membership write.
	claimed, err := s.repo.ResolveNotification(ctx, notificationID, message, "")
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyResolved
	}

	if action == InvitationAccept {
		added, err := s.repo.AddMember(ctx, room.ID, actorID, n.Data.InvitedRole)
		if err != nil {
			return err
		}
		if !added {
			s.log.Info("Invite accepted by existing member", "room_id", room.ID, "user_id", actorID)
		}
	}

	s.notifyInviter(ctx, n, room, actorID, action)
	return nil
}

// notifyInviter sends the counter-notification reporting the outcome back to
// the original inviter. Best-effort: failure is logged only.
func (s *MembershipService) notifyInviter(ctx context.Context, n *models.Notification, room *models.Room, actorID string, action InvitationAction) {
	inviterID := n.Data.PerformerID
	if inviterID == "" {
		return
	}
	actorName := s.displayName(ctx, actorID)

	counterType := models.NotificationInvitationAccepted
	verb := "accepted"
	if action == InvitationDecline {
		counterType = models.NotificationInvitationDeclined
		verb = "declined"
	}

	_, err := s.repo.CreateNotification(ctx, &models.Notification{
		UserID:  inviterID,
		Type:    counterType,
		Message: fmt.Sprintf("%s %s your invitation to join room %q.", actorName, verb, room.Name),
		Data: models.NotificationData{
			RoomID:       room.ID,
			PerformerID:  actorID,
			TargetUserID: inviterID,
		},
	})
	if err != nil {
		s.log.Warn("Failed to notify inviter", "notification_id", n.ID, "error", err)
	}
}

// RequestJoin files a self-service join request against a public room. The
// request lives as an unread join_request_received notification addressed to
// the room admin.
func (s *MembershipService) RequestJoin(ctx context.Context, roomID int64, requesterID string) error {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Visibility != models.VisibilityPublic {
		return ErrRoomNotPublic
	}
	if room.HasMember(requesterID) {
		return ErrAlreadyMember
	}

	pending, err := s.repo.HasPendingJoinRequest(ctx, roomID, requesterID)
	if err != nil {
		return err
	}
	if pending {
		return ErrPendingRequest
	}

	requesterName := s.displayName(ctx, requesterID)
	_, err = s.repo.CreateNotification(ctx, &models.Notification{
		UserID:  room.AdminID,
		Type:    models.NotificationJoinRequestReceived,
		Message: fmt.Sprintf("%s requested to join %q.", requesterName, room.Name),
		Data: models.NotificationData{
			RoomID:        roomID,
			PerformerID:   requesterID,
			TargetUserID:  requesterID,
			RequestStatus: models.RequestStatusPending,
		},
	})
	if err != nil {
		return err
	}

	s.log.Info("Join request filed", "room_id", roomID, "requester_id", requesterID)
	return nil
}

// CancelJoinRequest withdraws the requester's still-pending join request.
// A request the admin already resolved (or that never existed) reports
// ErrNoPendingRequest.
func (s *MembershipService) CancelJoinRequest(ctx context.Context, roomID int64, requesterID string) error {
	deleted, err := s.repo.DeletePendingJoinRequest(ctx, roomID, requesterID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNoPendingRequest
	}
	s.log.Info("Join request cancelled", "room_id", roomID, "requester_id", requesterID)
	return nil
}

// ResolveJoinRequest applies the admin's decision to a pending join request.
// Same terminal-resolution discipline as invitations.
func (s *MembershipService) ResolveJoinRequest(ctx context.Context, notificationID int64, actorID string, action JoinRequestAction) error {
	n, err := s.getNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.Type != models.NotificationJoinRequestReceived || n.Data.RoomID == 0 || n.Data.TargetUserID == "" {
		return ErrNotJoinRequest
	}

	room, err := s.getRoom(ctx, n.Data.RoomID)
	if err != nil {
		return err
	}
	if room.AdminID != actorID {
		return ErrNotAdmin
	}
	if n.UserID != actorID {
		return ErrWrongRecipient
	}
	if n.IsRead {
		return ErrAlreadyResolved
	}

	requester, err := s.repo.GetUser(ctx, n.Data.TargetUserID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrUnknownUser
		}
		return err
	}

	var message, status string
	if action == JoinRequestApprove {
		message = fmt.Sprintf("You approved %s's request to join %s.", requester.DisplayName(), room.Name)
		status = models.RequestStatusApproved
	} else {
		message = fmt.Sprintf("You declined %s's request to join %s.", requester.DisplayName(), room.Name)
		status = models.RequestStatusDeclined
	}

	claimed, err := s.repo.ResolveNotification(ctx, notificationID, message, status)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyResolved
	}

	if action == JoinRequestApprove {
		if _, err := s.repo.AddMember(ctx, room.ID, requester.ID, models.RoleVoter); err != nil {
			return err
		}
	}

	s.notifyRequester(ctx, requester.ID, room, actorID, action)
	return nil
}

// notifyRequester reports the admin's decision back to the requester.
// Best-effort: failure is logged only.
func (s *MembershipService) notifyRequester(ctx context.Context, requesterID string, room *models.Room, adminID string, action JoinRequestAction) {
	counterType := models.NotificationJoinRequestApproved
	verb := "approved"
	if action == JoinRequestDecline {
		counterType = models.NotificationJoinRequestDeclined
		verb = "declined"
	}

	_, err := s.repo.CreateNotification(ctx, &models.Notification{
		UserID:  requesterID,
		Type:    counterType,
		Message: fmt.Sprintf("Your request to join room %q has been %s.", room.Name, verb),
		Data: models.NotificationData{
			RoomID:       room.ID,
			PerformerID:  adminID,
			TargetUserID: requesterID,
		},
	})
	if err != nil {
		s.log.Warn("Failed to notify requester", "room_id", room.ID, "error", err)
	}
}

func (s *MembershipService) getRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("room not found")
		}
		return nil, err
	}
	return room, nil
}

func (s *MembershipService) getNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("notification not found")
		}
		return nil, err
	}
	return n, nil
}

// displayName resolves a user id to a display name, falling back to the id
func (s *MembershipService) displayName(ctx context.Context, userID string) string {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return userID
	}
	return user.DisplayName()
}

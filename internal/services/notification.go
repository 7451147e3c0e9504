package services

import (
	"context"
	stderrors "errors"

	"github.com/agoranet/agora/internal/errors"
	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
)

// NotificationService exposes a user's notification feed
type NotificationService struct {
	log  logger.Logger
	repo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(log logger.Logger, repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{log: log, repo: repo}
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

// MarkRead marks one of the user's notifications as read. Marking an already
// read notification is a no-op. Actionable notifications should be resolved
// through their workflow endpoints instead, but marking them read here is the
// recipient's prerogative: it dismisses the pending action.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID int64, userID string) error {
	n, err := s.repo.GetNotification(ctx, notificationID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("notification not found")
		}
		return err
	}
	if n.UserID != userID {
		return ErrNotRecipient
	}
	if _, err := s.repo.MarkNotificationRead(ctx, notificationID, userID); err != nil {
		return err
	}
	return nil
}

package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agoranet/agora/internal/errors"
	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
	"github.com/agoranet/agora/pkg/ledger"
)

// BallotServiceRepository defines the repository methods needed by BallotService
type BallotServiceRepository interface {
	repository.BallotRepository
	repository.RoomRepository
	repository.NotificationRepository
}

// BallotService handles ballot creation and retrieval
type BallotService struct {
	log         logger.Logger
	repo        BallotServiceRepository
	ledger      ledger.Client
	broadcaster Broadcaster
}

// NewBallotService creates a new BallotService. The ledger client may be nil
// when mirroring is disabled.
func NewBallotService(log logger.Logger, repo BallotServiceRepository, ledgerClient ledger.Client) *BallotService {
	return &BallotService{
		log:    log,
		repo:   repo,
		ledger: ledgerClient,
	}
}

// SetBroadcaster wires the realtime hub. Safe to leave unset.
func (s *BallotService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// BallotParams carries the fields for creating a ballot
type BallotParams struct {
	Title              string
	Choices            []string
	StartTime          *time.Time
	EndTime            *time.Time
	MaxChoicesPerVoter int
}

// Create creates a ballot in a room. Admin only. Every member other than the
// creator is notified, and the ballot is mirrored to the ledger best-effort.
func (s *BallotService) Create(ctx context.Context, roomID int64, actorID string, params BallotParams) (*models.Ballot, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.AdminID != actorID {
		return nil, ErrNotAdmin
	}

	choices := make([]models.Choice, 0, len(params.Choices))
	for _, text := range params.Choices {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		choices = append(choices, models.Choice{Text: text})
	}
	if strings.TrimSpace(params.Title) == "" || len(choices) < 2 {
		return nil, ErrBallotNeedsChoices
	}
	if params.StartTime != nil && params.EndTime != nil && !params.EndTime.After(*params.StartTime) {
		return nil, ErrInvalidWindow
	}
	maxChoices := params.MaxChoicesPerVoter
	if maxChoices == 0 {
		maxChoices = 1
	}
	if maxChoices < 1 {
		return nil, ErrInvalidMaxChoices
	}

	ballot := &models.Ballot{
		RoomID:             roomID,
		Title:              strings.TrimSpace(params.Title),
		Choices:            choices,
		StartTime:          params.StartTime,
		EndTime:            params.EndTime,
		MaxChoicesPerVoter: maxChoices,
		VotedUserIDs:       map[string][]int64{},
	}
	if _, err := s.repo.CreateBallot(ctx, ballot); err != nil {
		return nil, err
	}

	s.log.Info("Ballot created", "ballot_id", ballot.ID, "room_id", roomID, "choices", len(choices))

	s.mirrorBallot(ctx, room, ballot)
	s.notifyMembers(ctx, room, ballot, actorID)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage("new_ballot", map[string]interface{}{
			"ballot_id": ballot.ID,
			"room_id":   roomID,
			"title":     ballot.Title,
		})
	}

	return ballot, nil
}

// Get retrieves a ballot for a room member
func (s *BallotService) Get(ctx context.Context, ballotID int64, actorID string) (*models.Ballot, error) {
	ballot, err := s.repo.GetBallot(ctx, ballotID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("ballot not found")
		}
		return nil, err
	}
	if err := s.requireMember(ctx, ballot.RoomID, actorID); err != nil {
		return nil, err
	}
	return ballot, nil
}

// ListForRoom retrieves all ballots in a room for a member, newest first
func (s *BallotService) ListForRoom(ctx context.Context, roomID int64, actorID string) ([]models.Ballot, error) {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, roomID, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListBallotsForRoom(ctx, roomID)
}

func (s *BallotService) getRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("room not found")
		}
		return nil, err
	}
	return room, nil
}

func (s *BallotService) requireMember(ctx context.Context, roomID int64, userID string) error {
	_, isMember, err := s.repo.MemberRole(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotInRoom
	}
	return nil
}

// mirrorBallot registers the new ballot on the external ledger, best-effort
func (s *BallotService) mirrorBallot(ctx context.Context, room *models.Room, ballot *models.Ballot) {
	if s.ledger == nil {
		return
	}
	options := make([]string, len(ballot.Choices))
	for i, c := range ballot.Choices {
		options[i] = c.Text
	}
	err := s.ledger.CreateBallot(ctx,
		strconv.FormatInt(room.ID, 10),
		strconv.FormatInt(ballot.ID, 10),
		ballot.Title, options)
	if err != nil {
		s.log.Warn("Ledger ballot mirror failed", "ballot_id", ballot.ID, "error", err)
	}
}

// notifyMembers fans a new_ballot notification out to every member except the
// creator. Notification failures don't fail ballot creation.
func (s *BallotService) notifyMembers(ctx context.Context, room *models.Room, ballot *models.Ballot, creatorID string) {
	message := fmt.Sprintf("A new ballot %q has been created in room %q.", ballot.Title, room.Name)
	for _, m := range room.Members {
		if m.UserID == creatorID {
			continue
		}
		_, err := s.repo.CreateNotification(ctx, &models.Notification{
			UserID:  m.UserID,
			Type:    models.NotificationNewBallot,
			Message: message,
			Data: models.NotificationData{
				RoomID:      room.ID,
				BallotID:    ballot.ID,
				PerformerID: creatorID,
			},
		})
		if err != nil {
			s.log.Warn("Failed to notify member of new ballot", "user_id", m.UserID, "error", err)
		}
	}
}

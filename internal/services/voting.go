package services

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/agoranet/agora/internal/errors"
	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
	"github.com/agoranet/agora/pkg/ledger"
)

// VotingServiceRepository defines the repository methods needed by VotingService
type VotingServiceRepository interface {
	repository.BallotRepository
	repository.RoomRepository
}

// VotingService handles vote casting. Validation is a pure pass over loaded
// state; the repository enforces the exactly-once rule again inside the write
// transaction, so a race between two requests from the same user cannot
// double-count.
type VotingService struct {
	log         logger.Logger
	repo        VotingServiceRepository
	ledger      ledger.Client
	broadcaster Broadcaster
	now         func() time.Time
}

// NewVotingService creates a new VotingService. The ledger client may be nil
// when mirroring is disabled.
func NewVotingService(log logger.Logger, repo VotingServiceRepository, ledgerClient ledger.Client) *VotingService {
	return &VotingService{
		log:    log,
		repo:   repo,
		ledger: ledgerClient,
		now:    time.Now,
	}
}

// SetBroadcaster wires the realtime hub. Safe to leave unset.
func (s *VotingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// ValidateVote decides accept/reject for a requested selection without
// mutating anything. Checks run in a fixed order and the first failure wins:
// room linkage, membership, time window, selection shape, choice existence,
// exactly-once.
func ValidateVote(ballot *models.Ballot, room *models.Room, voterID string, choiceIDs []int64, now time.Time) error {
	if ballot.RoomID != room.ID {
		return ErrBallotRoomMismatch
	}
	if !room.HasMember(voterID) {
		return ErrNotAMember
	}
	if ballot.StartTime != nil && now.Before(*ballot.StartTime) {
		return ErrVotingNotStarted
	}
	if ballot.EndTime != nil && now.After(*ballot.EndTime) {
		return ErrVotingClosed
	}
	if len(choiceIDs) == 0 {
		return ErrInvalidSelection
	}
	seen := make(map[int64]bool, len(choiceIDs))
	for _, id := range choiceIDs {
		if id <= 0 || seen[id] {
			return ErrInvalidSelection
		}
		seen[id] = true
	}
	if len(choiceIDs) > ballot.MaxChoicesPerVoter {
		return ErrTooManyChoices
	}
	for _, id := range choiceIDs {
		if !ballot.HasChoice(id) {
			return ErrUnknownChoice
		}
	}
	if ballot.HasVoted(voterID) {
		return ErrAlreadyVoted
	}
	return nil
}

// CastVote applies a voter's selection to a ballot. On success the updated
// ballot is returned and the vote is mirrored to the external ledger on a
// best-effort basis: mirror failures are logged and never affect the result.
func (s *VotingService) CastVote(ctx context.Context, ballotID, roomID int64, voterID string, choiceIDs []int64) (*models.Ballot, error) {
	ballot, err := s.repo.GetBallot(ctx, ballotID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("ballot not found")
		}
		return nil, err
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("room not found")
		}
		return nil, err
	}

	if err := ValidateVote(ballot, room, voterID, choiceIDs, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.CastVote(ctx, ballotID, voterID, choiceIDs); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			// Lost a race against a concurrent request from the same voter
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}

	updated, err := s.repo.GetBallot(ctx, ballotID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Vote recorded", "ballot_id", ballotID, "voter_id", voterID, "choices", len(choiceIDs))

	s.mirrorVote(ctx, roomID, ballotID, voterID, choiceIDs)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage("ballot_update", tallyPayload(updated))
	}

	return updated, nil
}

// mirrorVote pushes the accepted vote to the external ledger, one call per
// selected choice. Voting success is defined solely by the local commit, so
// mirror failures are swallowed after logging.
func (s *VotingService) mirrorVote(ctx context.Context, roomID, ballotID int64, voterID string, choiceIDs []int64) {
	if s.ledger == nil {
		return
	}
	for _, choiceID := range choiceIDs {
		err := s.ledger.CastVote(ctx,
			strconv.FormatInt(roomID, 10),
			strconv.FormatInt(ballotID, 10),
			voterID,
			strconv.FormatInt(choiceID, 10))
		if err != nil {
			s.log.Warn("Ledger vote mirror failed", "ballot_id", ballotID, "choice_id", choiceID, "error", err)
		}
	}
}

func tallyPayload(b *models.Ballot) map[string]interface{} {
	tallies := make(map[string]int, len(b.Choices))
	for _, c := range b.Choices {
		tallies[strconv.FormatInt(c.ID, 10)] = c.VoteCount
	}
	return map[string]interface{}{
		"ballot_id": b.ID,
		"room_id":   b.RoomID,
		"tallies":   tallies,
		"total":     b.TotalVotes(),
	}
}

package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
	"github.com/agoranet/agora/internal/repository/mock"
	"github.com/agoranet/agora/internal/services"
	"github.com/agoranet/agora/internal/testutil"
	"github.com/agoranet/agora/pkg/ledger"
)

// recordingBroadcaster captures broadcast messages for assertions
type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []models.WSMessage
}

func (b *recordingBroadcaster) BroadcastMessage(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, models.WSMessage{Type: msgType, Payload: payload})
}

func (b *recordingBroadcaster) messages() []models.WSMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.WSMessage, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// seedUser creates a user row
func seedUser(t *testing.T, repo repository.UserRepository, id, username, name string) {
	t.Helper()
	if err := repo.UpsertUser(context.Background(), models.User{ID: id, Username: username, Name: name}); err != nil {
		t.Fatalf("UpsertUser(%s) failed: %v", id, err)
	}
}

// seedRoom creates a room with the given admin as its first member
func seedRoom(t *testing.T, repo repository.RoomRepository, adminID string, visibility models.Visibility) int64 {
	t.Helper()
	ctx := context.Background()
	roomID, err := repo.CreateRoom(ctx, "Test Room", "", adminID, visibility, "test-token-"+adminID)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := repo.AddMember(ctx, roomID, adminID, models.RoleAdmin); err != nil {
		t.Fatalf("AddMember(admin) failed: %v", err)
	}
	return roomID
}

// seedMember adds a user to a room
func seedMember(t *testing.T, repo repository.RoomRepository, roomID int64, userID string, role models.Role) {
	t.Helper()
	if _, err := repo.AddMember(context.Background(), roomID, userID, role); err != nil {
		t.Fatalf("AddMember(%s) failed: %v", userID, err)
	}
}

// seedBallot creates a ballot and returns it with choice IDs populated
func seedBallot(t *testing.T, repo repository.BallotRepository, roomID int64, maxChoices int, choiceTexts ...string) *models.Ballot {
	t.Helper()
	ctx := context.Background()
	choices := make([]models.Choice, len(choiceTexts))
	for i, text := range choiceTexts {
		choices[i] = models.Choice{Text: text}
	}
	ballot := &models.Ballot{
		RoomID:             roomID,
		Title:              "Test Ballot",
		Choices:            choices,
		MaxChoicesPerVoter: maxChoices,
	}
	id, err := repo.CreateBallot(ctx, ballot)
	if err != nil {
		t.Fatalf("CreateBallot failed: %v", err)
	}
	created, err := repo.GetBallot(ctx, id)
	if err != nil {
		t.Fatalf("GetBallot failed: %v", err)
	}
	return created
}

// setupVotingService wires a VotingService over a fresh in-memory repository
func setupVotingService(t *testing.T) (*services.VotingService, *ledger.MockClient, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	ledgerClient := ledger.NewMockClient()
	svc := services.NewVotingService(logger.New(), repo, ledgerClient)
	return svc, ledgerClient, repo
}

// TestCastVote_RecordsVoteAndTally tests that a valid vote updates the tally
// and the voter ledger
func TestCastVote_RecordsVoteAndTally(t *testing.T) {
	svc, ledgerClient, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	seedUser(t, repo, "u-bob", "bob", "Bob")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	seedMember(t, repo, roomID, "u-bob", models.RoleVoter)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	updated, err := svc.CastVote(ctx, ballot.ID, roomID, "u-bob", []int64{ballot.Choices[0].ID})
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if updated.Choices[0].VoteCount != 1 {
		t.Errorf("expected choice 0 vote count 1, got %d", updated.Choices[0].VoteCount)
	}
	if updated.Choices[1].VoteCount != 0 {
		t.Errorf("expected choice 1 vote count 0, got %d", updated.Choices[1].VoteCount)
	}
	if !updated.HasVoted("u-bob") {
		t.Error("expected voter to be recorded in VotedUserIDs")
	}
	if updated.TotalVotes() != 1 {
		t.Errorf("expected total votes 1, got %d", updated.TotalVotes())
	}
	if ledgerClient.VoteCount() != 1 {
		t.Errorf("expected 1 mirrored vote, got %d", ledgerClient.VoteCount())
	}
}

// TestCastVote_SecondVoteRejected tests the exactly-once rule: a second vote
// from the same user fails and leaves the tally unchanged
func TestCastVote_SecondVoteRejected(t *testing.T) {
	svc, _, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	if _, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", []int64{ballot.Choices[0].ID}); err != nil {
		t.Fatalf("first CastVote failed: %v", err)
	}

	_, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", []int64{ballot.Choices[1].ID})
	if !errors.Is(err, services.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	after, err := repo.GetBallot(ctx, ballot.ID)
	if err != nil {
		t.Fatalf("GetBallot failed: %v", err)
	}
	if after.TotalVotes() != 1 {
		t.Errorf("expected total votes to stay 1, got %d", after.TotalVotes())
	}
	if after.Choices[1].VoteCount != 0 {
		t.Errorf("rejected vote must not touch the tally, got %d", after.Choices[1].VoteCount)
	}
}

// TestCastVote_NonMemberRejected tests that a non-member cannot vote
func TestCastVote_NonMemberRejected(t *testing.T) {
	svc, _, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	seedUser(t, repo, "u-out", "outsider", "Outsider")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPublic)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	_, err := svc.CastVote(ctx, ballot.ID, roomID, "u-out", []int64{ballot.Choices[0].ID})
	if !errors.Is(err, services.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
}

// TestCastVote_BallotRoomMismatch tests that a ballot cannot be voted through
// another room
func TestCastVote_BallotRoomMismatch(t *testing.T) {
	svc, _, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomA := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	roomB, err := repo.CreateRoom(ctx, "Other Room", "", "u-admin", models.VisibilityPrivate, "other-token")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	seedMember(t, repo, roomB, "u-admin", models.RoleAdmin)
	ballot := seedBallot(t, repo, roomA, 1, "Yes", "No")

	_, err = svc.CastVote(ctx, ballot.ID, roomB, "u-admin", []int64{ballot.Choices[0].ID})
	if !errors.Is(err, services.ErrBallotRoomMismatch) {
		t.Fatalf("expected ErrBallotRoomMismatch, got %v", err)
	}
}

// TestCastVote_MultiChoice tests that a multi-choice selection counts each
// chosen option once
func TestCastVote_MultiChoice(t *testing.T) {
	svc, ledgerClient, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 2, "Red", "Green", "Blue")

	picks := []int64{ballot.Choices[0].ID, ballot.Choices[2].ID}
	updated, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", picks)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if updated.Choices[0].VoteCount != 1 || updated.Choices[2].VoteCount != 1 {
		t.Errorf("expected chosen options at 1 vote each, got %d and %d",
			updated.Choices[0].VoteCount, updated.Choices[2].VoteCount)
	}
	if updated.Choices[1].VoteCount != 0 {
		t.Errorf("expected unchosen option at 0 votes, got %d", updated.Choices[1].VoteCount)
	}
	if got := updated.VotedUserIDs["u-admin"]; len(got) != 2 {
		t.Errorf("expected 2 recorded choice ids for voter, got %v", got)
	}
	// One mirror call per selected choice
	if ledgerClient.VoteCount() != 2 {
		t.Errorf("expected 2 mirrored votes, got %d", ledgerClient.VoteCount())
	}
}

// TestCastVote_TooManyChoices tests the per-voter selection cap
func TestCastVote_TooManyChoices(t *testing.T) {
	svc, _, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 1, "Red", "Green", "Blue")

	_, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin",
		[]int64{ballot.Choices[0].ID, ballot.Choices[1].ID})
	if !errors.Is(err, services.ErrTooManyChoices) {
		t.Fatalf("expected ErrTooManyChoices, got %v", err)
	}
}

// TestCastVote_UnknownChoice tests that a choice id from another ballot is
// rejected
func TestCastVote_UnknownChoice(t *testing.T) {
	svc, _, repo := setupVotingService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	_, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", []int64{99999})
	if !errors.Is(err, services.ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}
}

// TestCastVote_LedgerFailureIgnored tests that a ledger mirror failure does
// not fail the vote
func TestCastVote_LedgerFailureIgnored(t *testing.T) {
	svc, ledgerClient, repo := setupVotingService(t)
	ctx := context.Background()

	ledgerClient.CastVoteError = errors.New("ledger unreachable")

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	updated, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", []int64{ballot.Choices[0].ID})
	if err != nil {
		t.Fatalf("CastVote should succeed despite ledger failure, got %v", err)
	}
	if updated.TotalVotes() != 1 {
		t.Errorf("expected total votes 1, got %d", updated.TotalVotes())
	}
}

// TestCastVote_BroadcastsTally tests that a successful vote broadcasts a
// ballot_update message
func TestCastVote_BroadcastsTally(t *testing.T) {
	svc, _, repo := setupVotingService(t)
	ctx := context.Background()

	broadcaster := &recordingBroadcaster{}
	svc.SetBroadcaster(broadcaster)

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	if _, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", []int64{ballot.Choices[0].ID}); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	msgs := broadcaster.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(msgs))
	}
	if msgs[0].Type != "ballot_update" {
		t.Errorf("expected ballot_update broadcast, got %q", msgs[0].Type)
	}
}

// TestCastVote_RepoDuplicateMapped tests that a duplicate detected inside the
// write transaction surfaces as ErrAlreadyVoted
func TestCastVote_RepoDuplicateMapped(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	mockRepo := mock.NewRepository(repo)
	mockRepo.CastVoteError = repository.ErrDuplicate
	svc := services.NewVotingService(logger.New(), mockRepo, nil)
	ctx := context.Background()

	seedUser(t, repo, "u-admin", "admin", "Admin")
	roomID := seedRoom(t, repo, "u-admin", models.VisibilityPrivate)
	ballot := seedBallot(t, repo, roomID, 1, "Yes", "No")

	_, err := svc.CastVote(ctx, ballot.ID, roomID, "u-admin", []int64{ballot.Choices[0].ID})
	if !errors.Is(err, services.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

// TestValidateVote_Window tests the time window checks with a fixed clock
func TestValidateVote_Window(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	room := &models.Room{ID: 1, Members: []models.Member{{UserID: "u1", Role: models.RoleVoter}}}
	base := models.Ballot{
		ID:                 1,
		RoomID:             1,
		Choices:            []models.Choice{{ID: 10, Text: "Yes"}, {ID: 11, Text: "No"}},
		MaxChoicesPerVoter: 1,
		VotedUserIDs:       map[string][]int64{},
	}

	notStarted := base
	notStarted.StartTime = &future
	if err := services.ValidateVote(&notStarted, room, "u1", []int64{10}, now); !errors.Is(err, services.ErrVotingNotStarted) {
		t.Errorf("before start: expected ErrVotingNotStarted, got %v", err)
	}

	closed := base
	closed.EndTime = &past
	if err := services.ValidateVote(&closed, room, "u1", []int64{10}, now); !errors.Is(err, services.ErrVotingClosed) {
		t.Errorf("after end: expected ErrVotingClosed, got %v", err)
	}

	open := base
	open.StartTime = &past
	open.EndTime = &future
	if err := services.ValidateVote(&open, room, "u1", []int64{10}, now); err != nil {
		t.Errorf("inside window: expected accept, got %v", err)
	}

	// Boundaries are inclusive
	atStart := base
	atStart.StartTime = &now
	if err := services.ValidateVote(&atStart, room, "u1", []int64{10}, now); err != nil {
		t.Errorf("at start instant: expected accept, got %v", err)
	}
	atEnd := base
	atEnd.EndTime = &now
	if err := services.ValidateVote(&atEnd, room, "u1", []int64{10}, now); err != nil {
		t.Errorf("at end instant: expected accept, got %v", err)
	}
}

// TestValidateVote_SelectionShape tests empty, non-positive and duplicate
// selections
func TestValidateVote_SelectionShape(t *testing.T) {
	now := time.Now()
	room := &models.Room{ID: 1, Members: []models.Member{{UserID: "u1", Role: models.RoleVoter}}}
	ballot := &models.Ballot{
		ID:                 1,
		RoomID:             1,
		Choices:            []models.Choice{{ID: 10}, {ID: 11}},
		MaxChoicesPerVoter: 2,
		VotedUserIDs:       map[string][]int64{},
	}

	cases := []struct {
		name    string
		choices []int64
	}{
		{"empty", nil},
		{"zero id", []int64{0}},
		{"negative id", []int64{-5}},
		{"duplicate ids", []int64{10, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := services.ValidateVote(ballot, room, "u1", tc.choices, now)
			if !errors.Is(err, services.ErrInvalidSelection) {
				t.Errorf("expected ErrInvalidSelection, got %v", err)
			}
		})
	}
}

// TestValidateVote_MembershipBeforeWindow tests check ordering: a non-member
// on a closed ballot gets the membership rejection
func TestValidateVote_MembershipBeforeWindow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	room := &models.Room{ID: 1, Members: []models.Member{{UserID: "u1", Role: models.RoleVoter}}}
	ballot := &models.Ballot{
		ID:                 1,
		RoomID:             1,
		EndTime:            &past,
		Choices:            []models.Choice{{ID: 10}},
		MaxChoicesPerVoter: 1,
		VotedUserIDs:       map[string][]int64{},
	}

	err := services.ValidateVote(ballot, room, "u-stranger", []int64{10}, now)
	if !errors.Is(err, services.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember before window check, got %v", err)
	}
}

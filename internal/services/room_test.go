package services_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
	"github.com/agoranet/agora/internal/services"
	"github.com/agoranet/agora/internal/testutil"
	"github.com/agoranet/agora/pkg/ledger"
)

// setupRoomService wires a RoomService over a fresh in-memory repository
func setupRoomService(t *testing.T) (*services.RoomService, *ledger.MockClient, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	ledgerClient := ledger.NewMockClient()
	svc := services.NewRoomService(logger.New(), repo, ledgerClient, "https://agora.example")
	return svc, ledgerClient, repo
}

// TestCreateRoom_CreatorBecomesAdmin tests the create happy path
func TestCreateRoom_CreatorBecomesAdmin(t *testing.T) {
	svc, ledgerClient, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")

	room, err := svc.Create(ctx, "u-alice", services.RoomParams{
		Name:       "Book Club",
		Visibility: models.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if room.AdminID != "u-alice" {
		t.Errorf("expected creator as admin, got %s", room.AdminID)
	}
	role, ok := room.MemberRole("u-alice")
	if !ok || role != models.RoleAdmin {
		t.Errorf("expected creator as admin member, got role %q ok=%v", role, ok)
	}
	if room.InviteToken == "" {
		t.Error("expected a generated invite token")
	}

	if len(ledgerClient.CreatedRooms) != 1 {
		t.Errorf("expected 1 mirrored room, got %d", len(ledgerClient.CreatedRooms))
	}
}

// TestCreateRoom_DefaultsToPrivate tests the visibility default
func TestCreateRoom_DefaultsToPrivate(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")

	room, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Quiet Corner"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if room.Visibility != models.VisibilityPrivate {
		t.Errorf("expected private default, got %s", room.Visibility)
	}
}

// TestCreateRoom_RequiresName tests name validation
func TestCreateRoom_RequiresName(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")

	if _, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "   "}); err == nil {
		t.Fatal("expected error for blank room name")
	}
}

// TestGetRoom_Visibility tests that private rooms are members-only while
// public rooms are readable by anyone
func TestGetRoom_Visibility(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")
	seedUser(t, repo, "u-out", "outsider", "Outsider")

	private, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Private", Visibility: models.VisibilityPrivate})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	public, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Public", Visibility: models.VisibilityPublic})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Get(ctx, private.ID, "u-out"); !errors.Is(err, services.ErrNotInRoom) {
		t.Errorf("private room for outsider: expected ErrNotInRoom, got %v", err)
	}
	if _, err := svc.Get(ctx, private.ID, "u-alice"); err != nil {
		t.Errorf("private room for member: expected success, got %v", err)
	}
	if _, err := svc.Get(ctx, public.ID, "u-out"); err != nil {
		t.Errorf("public room for outsider: expected success, got %v", err)
	}
}

// TestLeaveRoom tests leaving, the admin restriction, and the non-member case
func TestLeaveRoom(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")
	seedUser(t, repo, "u-bob", "bob", "Bob")

	room, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Leavers"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	seedMember(t, repo, room.ID, "u-bob", models.RoleVoter)

	if err := svc.Leave(ctx, room.ID, "u-alice"); !errors.Is(err, services.ErrAdminCannotLeave) {
		t.Errorf("admin leave: expected ErrAdminCannotLeave, got %v", err)
	}
	if err := svc.Leave(ctx, room.ID, "u-bob"); err != nil {
		t.Fatalf("member leave failed: %v", err)
	}
	if err := svc.Leave(ctx, room.ID, "u-bob"); !errors.Is(err, services.ErrNotInRoom) {
		t.Errorf("second leave: expected ErrNotInRoom, got %v", err)
	}

	after, err := repo.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if after.HasMember("u-bob") {
		t.Error("expected bob removed from member list")
	}
}

// TestLeaveRoom_VotesSurvive tests that a leaving member's cast votes stay in
// the tally
func TestLeaveRoom_VotesSurvive(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")
	seedUser(t, repo, "u-bob", "bob", "Bob")

	room, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Sticky Votes"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	seedMember(t, repo, room.ID, "u-bob", models.RoleVoter)
	ballot := seedBallot(t, repo, room.ID, 1, "Yes", "No")

	votingSvc := services.NewVotingService(logger.New(), repo, nil)
	if _, err := votingSvc.CastVote(ctx, ballot.ID, room.ID, "u-bob", []int64{ballot.Choices[0].ID}); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if err := svc.Leave(ctx, room.ID, "u-bob"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	after, err := repo.GetBallot(ctx, ballot.ID)
	if err != nil {
		t.Fatalf("GetBallot failed: %v", err)
	}
	if after.TotalVotes() != 1 {
		t.Errorf("expected cast vote to survive leaving, got total %d", after.TotalVotes())
	}
	if !after.HasVoted("u-bob") {
		t.Error("expected bob's ledger entry to survive leaving")
	}
}

// TestInviteLink_AdminOnly tests the invite link surface
func TestInviteLink_AdminOnly(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")
	seedUser(t, repo, "u-bob", "bob", "Bob")

	room, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Linked"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	seedMember(t, repo, room.ID, "u-bob", models.RoleVoter)

	link, err := svc.InviteLink(ctx, room.ID, "u-alice")
	if err != nil {
		t.Fatalf("InviteLink failed: %v", err)
	}
	if !strings.HasPrefix(link.URL, "https://agora.example/join/") {
		t.Errorf("unexpected link URL %q", link.URL)
	}
	if !strings.HasSuffix(link.URL, link.Token) {
		t.Errorf("link URL %q should end with the token %q", link.URL, link.Token)
	}

	if _, err := svc.InviteLink(ctx, room.ID, "u-bob"); !errors.Is(err, services.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for non-admin, got %v", err)
	}
}

// TestInviteQR_ReturnsPNG tests that the QR endpoint produces a PNG image
func TestInviteQR_ReturnsPNG(t *testing.T) {
	svc, _, repo := setupRoomService(t)
	ctx := context.Background()

	seedUser(t, repo, "u-alice", "alice", "Alice")

	room, err := svc.Create(ctx, "u-alice", services.RoomParams{Name: "Scannable"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	png, err := svc.InviteQR(ctx, room.ID, "u-alice")
	if err != nil {
		t.Fatalf("InviteQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG magic bytes")
	}
}

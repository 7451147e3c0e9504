package services

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/agoranet/agora/internal/errors"
	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
	"github.com/agoranet/agora/pkg/ledger"
)

// RoomServiceRepository defines the repository methods needed by RoomService
type RoomServiceRepository interface {
	repository.RoomRepository
}

// RoomService handles room lifecycle and membership views
type RoomService struct {
	log     logger.Logger
	repo    RoomServiceRepository
	ledger  ledger.Client
	baseURL string
}

// NewRoomService creates a new RoomService. baseURL is the public address used
// to build invite links; the ledger client may be nil when mirroring is
// disabled.
func NewRoomService(log logger.Logger, repo RoomServiceRepository, ledgerClient ledger.Client, baseURL string) *RoomService {
	return &RoomService{
		log:     log,
		repo:    repo,
		ledger:  ledgerClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// RoomParams carries the fields for creating a room
type RoomParams struct {
	Name        string
	Description string
	Visibility  models.Visibility
}

// InviteLink is a shareable join link for a room
type InviteLink struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// Create creates a room with the actor as its admin member. The room is
// mirrored to the ledger best-effort.
func (s *RoomService) Create(ctx context.Context, actorID string, params RoomParams) (*models.Room, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, errors.Validation("room name is required")
	}
	visibility := params.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if !visibility.Valid() {
		return nil, errors.Validation("visibility must be public or private")
	}

	token := uuid.NewString()
	roomID, err := s.repo.CreateRoom(ctx, name, strings.TrimSpace(params.Description), actorID, visibility, token)
	if err != nil {
		return nil, err
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Room created", "room_id", roomID, "admin_id", actorID, "visibility", visibility)

	s.mirrorRoom(ctx, room)
	return room, nil
}

// Get retrieves a room. Private rooms are visible to members only; public
// rooms are visible to any authenticated user.
func (s *RoomService) Get(ctx context.Context, roomID int64, actorID string) (*models.Room, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Visibility != models.VisibilityPublic && !room.HasMember(actorID) {
		return nil, ErrNotInRoom
	}
	return room, nil
}

// Leave removes the actor from the room. The admin cannot leave their own
// room; votes already cast by the leaving member are kept.
func (s *RoomService) Leave(ctx context.Context, roomID int64, actorID string) error {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.AdminID == actorID {
		return ErrAdminCannotLeave
	}

	removed, err := s.repo.RemoveMember(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotInRoom
	}

	s.log.Info("Member left room", "room_id", roomID, "user_id", actorID)
	return nil
}

// InviteLink returns the room's shareable join link. Admin only.
func (s *RoomService) InviteLink(ctx context.Context, roomID int64, actorID string) (*InviteLink, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.AdminID != actorID {
		return nil, ErrNotAdmin
	}
	return &InviteLink{
		URL:   s.baseURL + "/join/" + room.InviteToken,
		Token: room.InviteToken,
	}, nil
}

// InviteQR returns the room's join link encoded as a QR code PNG. Admin only.
func (s *RoomService) InviteQR(ctx context.Context, roomID int64, actorID string) ([]byte, error) {
	link, err := s.InviteLink(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(link.URL, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to generate QR code")
	}
	return png, nil
}

func (s *RoomService) getRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("room not found")
		}
		return nil, err
	}
	return room, nil
}

// mirrorRoom registers the new room on the external ledger, best-effort
func (s *RoomService) mirrorRoom(ctx context.Context, room *models.Room) {
	if s.ledger == nil {
		return
	}
	err := s.ledger.CreateRoom(ctx,
		strconv.FormatInt(room.ID, 10),
		room.Name,
		string(room.Visibility))
	if err != nil {
		s.log.Warn("Ledger room mirror failed", "room_id", room.ID, "error", err)
	}
}

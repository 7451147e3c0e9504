package handlers

import (
	"net/http"

	"github.com/agoranet/agora/internal/auth"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/services"
)

// identity extracts the authenticated caller placed by the auth middleware
func identity(r *http.Request) (*auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, Unauthorized("Authentication required")
	}
	return id, nil
}

// handleCreateRoom creates a room with the caller as admin
func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req RoomCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	room, err := h.Room.Create(r.Context(), id.UserID, services.RoomParams{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  models.Visibility(req.Visibility),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, room)
}

// handleGetRoom returns a room with its member list
func (h *Handlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	room, err := h.Room.Get(r.Context(), roomID, id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, room)
}

// handleLeaveRoom removes the caller from a room
func (h *Handlers) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Room.Leave(r.Context(), roomID, id.UserID); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "You left the room.")
}

// handleInvite invites a user to a room by username
func (h *Handlers) handleInvite(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Username == "" {
		respondError(w, BadRequest("Username is required"))
		return
	}
	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleVoter
	}

	if err := h.Membership.Invite(r.Context(), roomID, id.UserID, req.Username, role); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Invitation sent.")
}

// handleInviteLink returns the room's shareable join link
func (h *Handlers) handleInviteLink(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	link, err := h.Room.InviteLink(r.Context(), roomID, id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, link)
}

// handleInviteQR returns the join link as a QR code PNG
func (h *Handlers) handleInviteQR(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Room.InviteQR(r.Context(), roomID, id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleRequestJoin files a join request against a public room
func (h *Handlers) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Membership.RequestJoin(r.Context(), roomID, id.UserID); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Join request sent to the room admin.")
}

// handleCancelJoinRequest withdraws the caller's pending join request
func (h *Handlers) handleCancelJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	roomID, err := parseIDParam(r, "roomID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Membership.CancelJoinRequest(r.Context(), roomID, id.UserID); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Join request cancelled.")
}

package handlers

import (
	"net/http"

	"github.com/agoranet/agora/internal/services"
)

// handleListNotifications returns the caller's notification feed
func (h *Handlers) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}

	notifications, err := h.Notification.List(r.Context(), id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, notifications)
}

// handleMarkNotificationRead marks one of the caller's notifications read
func (h *Handlers) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	notificationID, err := parseIDParam(r, "notificationID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Notification.MarkRead(r.Context(), notificationID, id.UserID); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Notification marked as read.")
}

// handleInvitationAction applies the caller's accept/decline decision to a
// room invitation
func (h *Handlers) handleInvitationAction(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	notificationID, err := parseIDParam(r, "notificationID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	action, err := services.ParseInvitationAction(req.Action)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Membership.ResolveInvitation(r.Context(), notificationID, id.UserID, action); err != nil {
		respondError(w, err)
		return
	}

	if action == services.InvitationAccept {
		respondSuccess(w, "Invitation accepted.")
	} else {
		respondSuccess(w, "Invitation declined.")
	}
}

// handleJoinRequestAction applies the admin's approve/decline decision to a
// join request
func (h *Handlers) handleJoinRequestAction(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	notificationID, err := parseIDParam(r, "notificationID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	action, err := services.ParseJoinRequestAction(req.Action)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Membership.ResolveJoinRequest(r.Context(), notificationID, id.UserID, action); err != nil {
		respondError(w, err)
		return
	}

	if action == services.JoinRequestApprove {
		respondSuccess(w, "Join request approved.")
	} else {
		respondSuccess(w, "Join request declined.")
	}
}

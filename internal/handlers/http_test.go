package handlers_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/agoranet/agora/internal/errors"
	"github.com/agoranet/agora/internal/handlers"
	"github.com/agoranet/agora/internal/services"
)

// TestToAPIError_ServiceCodes tests that service rejection codes map to the
// right status families while keeping their own code
func TestToAPIError_ServiceCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not a member", services.ErrNotAMember, http.StatusForbidden},
		{"not admin", services.ErrNotAdmin, http.StatusForbidden},
		{"wrong recipient", services.ErrWrongRecipient, http.StatusForbidden},
		{"room not public", services.ErrRoomNotPublic, http.StatusForbidden},
		{"already voted", services.ErrAlreadyVoted, http.StatusConflict},
		{"already member", services.ErrAlreadyMember, http.StatusConflict},
		{"pending invitation", services.ErrPendingInvite, http.StatusConflict},
		{"pending request", services.ErrPendingRequest, http.StatusConflict},
		{"already resolved", services.ErrAlreadyResolved, http.StatusConflict},
		{"unknown user", services.ErrUnknownUser, http.StatusNotFound},
		{"no pending request", services.ErrNoPendingRequest, http.StatusNotFound},
		{"voting closed", services.ErrVotingClosed, http.StatusBadRequest},
		{"invalid selection", services.ErrInvalidSelection, http.StatusBadRequest},
		{"admin cannot leave", services.ErrAdminCannotLeave, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tc.err)
			if apiErr.Status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, apiErr.Status)
			}
			svcErr := tc.err.(*services.ServiceError)
			if apiErr.Code != svcErr.Code {
				t.Errorf("expected code %s, got %s", svcErr.Code, apiErr.Code)
			}
		})
	}
}

// TestToAPIError_AppErrorKinds tests the application error kind mapping
func TestToAPIError_AppErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errors.NotFound("room not found"), http.StatusNotFound},
		{"validation", errors.Validation("bad input"), http.StatusBadRequest},
		{"conflict", errors.Conflict("already there"), http.StatusConflict},
		{"forbidden", errors.Forbidden("no"), http.StatusForbidden},
		{"unauthorized", errors.Unauthorized("who"), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tc.err)
			if apiErr.Status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, apiErr.Status)
			}
		})
	}
}

// TestToAPIError_UnknownErrorIs500 tests that unexpected errors do not leak
// their message
func TestToAPIError_UnknownErrorIs500(t *testing.T) {
	apiErr := handlers.ToAPIError(stderrors.New("database exploded"))
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", apiErr.Status)
	}
	if apiErr.Message == "database exploded" {
		t.Error("internal error details must not leak to clients")
	}
}

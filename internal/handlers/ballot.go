package handlers

import (
	"net/http"

	"github.com/agoranet/agora/internal/services"
)

// handleCreateBallot creates a ballot in a room
func (h *Handlers) handleCreateBallot(w http.ResponseWriter, r *http.Request) {
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

	var req BallotCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ballot, err := h.Ballot.Create(r.Context(), roomID, id.UserID, services.BallotParams{
		Title:              req.Title,
		Choices:            req.Choices,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		MaxChoicesPerVoter: req.MaxChoicesPerVoter,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, newBallotResponse(ballot))
}

// handleListBallots lists a room's ballots, newest first
func (h *Handlers) handleListBallots(w http.ResponseWriter, r *http.Request) {
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

	ballots, err := h.Ballot.ListForRoom(r.Context(), roomID, id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]BallotResponse, len(ballots))
	for i := range ballots {
		out[i] = newBallotResponse(&ballots[i])
	}
	respondOK(w, out)
}

// handleGetBallot returns a ballot with its tallies
func (h *Handlers) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	ballotID, err := parseIDParam(r, "ballotID")
	if err != nil {
		respondError(w, err)
		return
	}

	ballot, err := h.Ballot.Get(r.Context(), ballotID, id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, newBallotResponse(ballot))
}

// handleCastVote casts the caller's vote on a ballot
func (h *Handlers) handleCastVote(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	ballotID, err := parseIDParam(r, "ballotID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.RoomID <= 0 {
		respondError(w, BadRequest("room_id is required"))
		return
	}

	ballot, err := h.Voting.CastVote(r.Context(), ballotID, req.RoomID, id.UserID, req.Selection())
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, newBallotResponse(ballot))
}

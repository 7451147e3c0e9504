package handlers

import "github.com/agoranet/agora/internal/models"

// TallyResponse is one choice's running total
type TallyResponse struct {
	ChoiceID  int64  `json:"choice_id"`
	Text      string `json:"text"`
	VoteCount int    `json:"vote_count"`
}

// BallotResponse is the JSON response for ballot reads and vote casts
type BallotResponse struct {
	Ballot     *models.Ballot  `json:"ballot"`
	Tallies    []TallyResponse `json:"tallies"`
	TotalVotes int             `json:"total_votes"`
}

// newBallotResponse builds the ballot response with its tally view
func newBallotResponse(b *models.Ballot) BallotResponse {
	tallies := make([]TallyResponse, len(b.Choices))
	for i, c := range b.Choices {
		tallies[i] = TallyResponse{ChoiceID: c.ID, Text: c.Text, VoteCount: c.VoteCount}
	}
	return BallotResponse{
		Ballot:     b,
		Tallies:    tallies,
		TotalVotes: b.TotalVotes(),
	}
}

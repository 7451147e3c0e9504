package ledger

import (
	"context"
	"sync"
)

// MockClient is a test double that records mirror calls and can inject errors
type MockClient struct {
	mu sync.Mutex

	// Injectable errors
	CreateRoomError   error
	CreateBallotError error
	CastVoteError     error
	ResultsError      error

	// Recorded calls
	CreatedRooms   []MockRoomCall
	CreatedBallots []MockBallotCall
	CastVotes      []MockVoteCall

	// Canned results for Results
	ResultsReturn map[string]int
}

// MockRoomCall records a CreateRoom invocation
type MockRoomCall struct {
	RoomID     string
	Name       string
	Visibility string
}

// MockBallotCall records a CreateBallot invocation
type MockBallotCall struct {
	RoomID   string
	BallotID string
	Title    string
	Options  []string
}

// MockVoteCall records a CastVote invocation
type MockVoteCall struct {
	RoomID   string
	BallotID string
	UserID   string
	ChoiceID string
}

// NewMockClient creates a new mock ledger client
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) CreateRoom(ctx context.Context, roomID, name, visibility string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateRoomError != nil {
		return m.CreateRoomError
	}
	m.CreatedRooms = append(m.CreatedRooms, MockRoomCall{RoomID: roomID, Name: name, Visibility: visibility})
	return nil
}

func (m *MockClient) CreateBallot(ctx context.Context, roomID, ballotID, title string, options []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateBallotError != nil {
		return m.CreateBallotError
	}
	m.CreatedBallots = append(m.CreatedBallots, MockBallotCall{
		RoomID:   roomID,
		BallotID: ballotID,
		Title:    title,
		Options:  options,
	})
	return nil
}

func (m *MockClient) CastVote(ctx context.Context, roomID, ballotID, userID, choiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CastVoteError != nil {
		return m.CastVoteError
	}
	m.CastVotes = append(m.CastVotes, MockVoteCall{
		RoomID:   roomID,
		BallotID: ballotID,
		UserID:   userID,
		ChoiceID: choiceID,
	})
	return nil
}

func (m *MockClient) Results(ctx context.Context, roomID, ballotID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResultsError != nil {
		return nil, m.ResultsError
	}
	return m.ResultsReturn, nil
}

// BaseURL returns a placeholder URL for the mock
func (m *MockClient) BaseURL() string {
	return "mock://ledger"
}

// VoteCount returns the number of recorded CastVote calls
func (m *MockClient) VoteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CastVotes)
}

// Package ledger provides a client for the external vote-mirroring ledger
// service. Mirror writes are best-effort: the caller commits locally first and
// treats ledger failures as log-only events.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/agoranet/agora/internal/logger"
)

// Client defines the interface for ledger mirror operations
type Client interface {
	// CreateRoom registers a room on the ledger
	CreateRoom(ctx context.Context, roomID, name, visibility string) error
	// CreateBallot registers a ballot and its options on the ledger
	CreateBallot(ctx context.Context, roomID, ballotID, title string, options []string) error
	// CastVote mirrors a single accepted vote to the ledger
	CastVote(ctx context.Context, roomID, ballotID, userID, choiceID string) error
	// Results fetches the ledger's view of a ballot's tallies
	Results(ctx context.Context, roomID, ballotID string) (map[string]int, error)
	// BaseURL returns the configured ledger base URL
	BaseURL() string
}

// HTTPClient is a real HTTP client for the ledger service
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new ledger HTTP client
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// BaseURL returns the configured ledger base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

type createRoomRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

type createBallotRequest struct {
	RoomID   string   `json:"roomId"`
	BallotID string   `json:"ballotId"`
	Title    string   `json:"title"`
	Options  []string `json:"options"`
}

type castVoteRequest struct {
	RoomID   string `json:"roomId"`
	BallotID string `json:"ballotId"`
	UserID   string `json:"userId"`
	ChoiceID string `json:"choiceId"`
}

// CreateRoom registers a room on the ledger
func (c *HTTPClient) CreateRoom(ctx context.Context, roomID, name, visibility string) error {
	return c.post(ctx, "/api/rooms", createRoomRequest{RoomID: roomID, Name: name, Type: visibility})
}

// CreateBallot registers a ballot and its options on the ledger
func (c *HTTPClient) CreateBallot(ctx context.Context, roomID, ballotID, title string, options []string) error {
	return c.post(ctx, "/api/ballots", createBallotRequest{
		RoomID:   roomID,
		BallotID: ballotID,
		Title:    title,
		Options:  options,
	})
}

// CastVote mirrors a single accepted vote to the ledger
func (c *HTTPClient) CastVote(ctx context.Context, roomID, ballotID, userID, choiceID string) error {
	return c.post(ctx, "/api/vote", castVoteRequest{
		RoomID:   roomID,
		BallotID: ballotID,
		UserID:   userID,
		ChoiceID: choiceID,
	})
}

// Results fetches the ledger's view of a ballot's tallies
func (c *HTTPClient) Results(ctx context.Context, roomID, ballotID string) (map[string]int, error) {
	u := fmt.Sprintf("%s/api/results?%s", c.baseURL, url.Values{
		"roomId":   {roomID},
		"ballotId": {ballotID},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ledger results returned %d: %s", resp.StatusCode, body)
	}

	var results map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode ledger results: %w", err)
	}
	return results, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ledger %s returned %d: %s", path, resp.StatusCode, respBody)
	}

	c.log.Debug("Ledger mirror write", "path", path)
	return nil
}

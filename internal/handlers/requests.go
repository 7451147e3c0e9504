package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FlexIDList accepts a single id or a list of ids, each as a JSON number or a
// numeric string. Clients send "3", 3, [3, "4"] interchangeably.
type FlexIDList []int64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexIDList) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*f = nil
		return nil
	case []interface{}:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			id, err := flexID(item)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*f = ids
		return nil
	default:
		id, err := flexID(raw)
		if err != nil {
			return err
		}
		*f = []int64{id}
		return nil
	}
}

func flexID(v interface{}) (int64, error) {
	switch val := v.(type) {
	case float64:
		return int64(val), nil
	case string:
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q", val)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("invalid id type %T", v)
	}
}

// RoomCreateRequest represents a request to create a room
type RoomCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

// BallotCreateRequest represents a request to create a ballot
type BallotCreateRequest struct {
	Title              string     `json:"title"`
	Choices            []string   `json:"choices"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	MaxChoicesPerVoter int        `json:"max_choices_per_voter"`
}

// VoteRequest represents a request to cast a vote. ChoiceID and ChoiceIDs are
// aliases; whichever the client sends wins, with ChoiceIDs taking precedence.
type VoteRequest struct {
	RoomID    int64      `json:"room_id"`
	ChoiceID  FlexIDList `json:"choice_id"`
	ChoiceIDs FlexIDList `json:"choice_ids"`
}

// Selection returns the requested choice ids
func (r VoteRequest) Selection() []int64 {
	if len(r.ChoiceIDs) > 0 {
		return r.ChoiceIDs
	}
	return r.ChoiceID
}

// InviteRequest represents a request to invite a user to a room
type InviteRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ActionRequest represents a decision on an actionable notification
type ActionRequest struct {
	Action string `json:"action"`
}

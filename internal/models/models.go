package models

import "time"

// Role is a member's role within a room
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCandidate Role = "candidate"
	RoleVoter     Role = "voter"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCandidate, RoleVoter:
		return true
	}
	return false
}

// Invitable reports whether the role may be granted through an invitation.
// Admin is reserved for the room creator.
func (r Role) Invitable() bool {
	return r == RoleCandidate || r == RoleVoter
}

// Visibility controls who can discover and request to join a room
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether the visibility is a known value
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// User mirrors the externally-authenticated identity
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// DisplayName returns the user's name, falling back to the username
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Member is the (user, role) relation between a user and a room
type Member struct {
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Room is a named collection of members with roles, owning ballots
type Room struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	AdminID     string     `json:"admin_id"`
	Visibility  Visibility `json:"visibility"`
	InviteToken string     `json:"-"`
	Members     []Member   `json:"members"` // insertion order
	CreatedAt   time.Time  `json:"created_at"`
}

// HasMember reports whether the user appears in the member list
func (r *Room) HasMember(userID string) bool {
	_, ok := r.MemberRole(userID)
	return ok
}

// MemberRole returns the user's role in the room, if any
func (r *Room) MemberRole(userID string) (Role, bool) {
	for _, m := range r.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// Choice is one selectable option on a ballot
type Choice struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	VoteCount int    `json:"vote_count"`
}

// Ballot is a titled set of choices open to voting within an optional window,
// scoped to one room. VotedUserIDs is the single source of truth for who has
// voted and what they picked; an entry is never overwritten.
type Ballot struct {
	ID                 int64              `json:"id"`
	RoomID             int64              `json:"room_id"`
	Title              string             `json:"title"`
	Choices            []Choice           `json:"choices"`
	StartTime          *time.Time         `json:"start_time,omitempty"`
	EndTime            *time.Time         `json:"end_time,omitempty"`
	MaxChoicesPerVoter int                `json:"max_choices_per_voter"`
	VotedUserIDs       map[string][]int64 `json:"voted_user_ids"`
	CreatedAt          time.Time          `json:"created_at"`
}

// HasChoice reports whether the ballot contains the given choice id
func (b *Ballot) HasChoice(choiceID int64) bool {
	for _, c := range b.Choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}

// HasVoted reports whether the user already has a ledger entry on this ballot
func (b *Ballot) HasVoted(userID string) bool {
	_, ok := b.VotedUserIDs[userID]
	return ok
}

// TotalVotes returns the sum of all choice vote counts
func (b *Ballot) TotalVotes() int {
	total := 0
	for _, c := range b.Choices {
		total += c.VoteCount
	}
	return total
}

// NotificationType is the closed set of notification variants
type NotificationType string

const (
	NotificationNewBallot           NotificationType = "new_ballot"
	NotificationRoomInvitation      NotificationType = "room_invitation"
	NotificationJoinRequestReceived NotificationType = "join_request_received"
	NotificationJoinRequestApproved NotificationType = "join_request_approved"
	NotificationJoinRequestDeclined NotificationType = "join_request_declined"
	NotificationInvitationAccepted  NotificationType = "invitation_accepted"
	NotificationInvitationDeclined  NotificationType = "invitation_declined"
)

// Valid reports whether the type is one of the known notification types
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewBallot, NotificationRoomInvitation,
		NotificationJoinRequestReceived, NotificationJoinRequestApproved,
		NotificationJoinRequestDeclined, NotificationInvitationAccepted,
		NotificationInvitationDeclined:
		return true
	}
	return false
}

// Request status values recorded on join-request notifications
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusDeclined = "declined"
)

// NotificationData is the immutable payload describing the proposed or
// reported state change. Entities are referenced by id only.
type NotificationData struct {
	RoomID        int64  `json:"room_id,omitempty"`
	BallotID      int64  `json:"ballot_id,omitempty"`
	PerformerID   string `json:"performer_id,omitempty"`
	TargetUserID  string `json:"target_user_id,omitempty"`
	InvitedRole   Role   `json:"invited_role,omitempty"`
	RequestStatus string `json:"request_status,omitempty"`
}

// Notification is a durable, addressed record proposing or reporting a state
// change. For actionable types IsRead doubles as "resolved": it flips to true
// exactly once, when the recipient acts.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	Data      NotificationData `json:"data"`
	CreatedAt time.Time        `json:"created_at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

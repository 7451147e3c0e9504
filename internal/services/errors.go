package services

// ServiceError is a service-level rejection with a stable machine-checkable
// code alongside the human-readable message
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Voting engine rejections, in validation order
var (
	ErrBallotRoomMismatch = &ServiceError{Code: "BALLOT_ROOM_MISMATCH", Message: "ballot does not belong to this room"}
	ErrNotAMember         = &ServiceError{Code: "NOT_A_MEMBER", Message: "you must be a member of the room to vote"}
	ErrVotingNotStarted   = &ServiceError{Code: "VOTING_NOT_STARTED", Message: "voting has not started yet"}
	ErrVotingClosed       = &ServiceError{Code: "VOTING_CLOSED", Message: "voting has ended"}
	ErrInvalidSelection   = &ServiceError{Code: "INVALID_SELECTION", Message: "no choice selected or invalid choice provided"}
	ErrTooManyChoices     = &ServiceError{Code: "TOO_MANY_CHOICES", Message: "selection exceeds the allowed number of choices"}
	ErrUnknownChoice      = &ServiceError{Code: "UNKNOWN_CHOICE", Message: "invalid choice for this ballot"}
	ErrAlreadyVoted       = &ServiceError{Code: "ALREADY_VOTED", Message: "you have already voted on this ballot"}
)

// Membership workflow rejections
var (
	ErrNotAdmin         = &ServiceError{Code: "NOT_ADMIN", Message: "only the room admin can perform this action"}
	ErrAlreadyMember    = &ServiceError{Code: "ALREADY_MEMBER", Message: "user is already a member of this room"}
	ErrSelfInvite       = &ServiceError{Code: "SELF_INVITE", Message: "you cannot invite yourself"}
	ErrInvalidRole      = &ServiceError{Code: "INVALID_ROLE", Message: "invalid role for invitation"}
	ErrUnknownUser      = &ServiceError{Code: "UNKNOWN_USER", Message: "user not found"}
	ErrPendingInvite    = &ServiceError{Code: "PENDING_INVITATION", Message: "an invitation for this room is already pending"}
	ErrPendingRequest   = &ServiceError{Code: "PENDING_REQUEST", Message: "a join request for this room is already pending admin approval"}
	ErrNotRecipient     = &ServiceError{Code: "NOT_RECIPIENT", Message: "this notification is not addressed to you"}
	ErrWrongRecipient   = &ServiceError{Code: "WRONG_RECIPIENT", Message: "notification not intended for this user"}
	ErrAlreadyResolved  = &ServiceError{Code: "ALREADY_RESOLVED", Message: "this notification has already been processed"}
	ErrInvalidAction    = &ServiceError{Code: "INVALID_ACTION", Message: "invalid action"}
	ErrNotInvitation    = &ServiceError{Code: "NOT_INVITATION", Message: "notification is not a room invitation"}
	ErrNotJoinRequest   = &ServiceError{Code: "NOT_JOIN_REQUEST", Message: "notification is not a join request"}
	ErrRoomNotPublic    = &ServiceError{Code: "ROOM_NOT_PUBLIC", Message: "can only request to join public rooms"}
	ErrNoPendingRequest = &ServiceError{Code: "NO_PENDING_REQUEST", Message: "no active join request found to cancel"}
)

// Room rejections
var (
	ErrAdminCannotLeave = &ServiceError{Code: "ADMIN_CANNOT_LEAVE", Message: "the room admin cannot leave their own room"}
	ErrNotInRoom        = &ServiceError{Code: "NOT_IN_ROOM", Message: "you are not a member of this room"}
)

// Ballot creation rejections
var (
	ErrBallotNeedsChoices = &ServiceError{Code: "BALLOT_NEEDS_CHOICES", Message: "ballot title and at least two choices are required"}
	ErrInvalidWindow      = &ServiceError{Code: "INVALID_WINDOW", Message: "voting window end must be after its start"}
	ErrInvalidMaxChoices  = &ServiceError{Code: "INVALID_MAX_CHOICES", Message: "max choices per voter must be at least 1"}
)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agoranet/agora/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewWithDB wraps an existing database handle (used by sqlmock tests)
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			name TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			admin_id TEXT NOT NULL,
			visibility TEXT NOT NULL DEFAULT 'public',
			invite_token TEXT UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS room_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			UNIQUE(room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ballots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			start_time DATETIME,
			end_time DATETIME,
			max_choices INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS choices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ballot_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			vote_count INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (ballot_id) REFERENCES ballots(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS ballot_votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ballot_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			choice_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (ballot_id) REFERENCES ballots(id) ON DELETE CASCADE,
			FOREIGN KEY (choice_id) REFERENCES choices(id),
			UNIQUE(ballot_id, user_id, choice_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			room_id INTEGER,
			ballot_id INTEGER,
			performer_id TEXT,
			target_user_id TEXT,
			invited_role TEXT,
			request_status TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_room ON room_members(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ballots_room ON ballots(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_choices_ballot ON choices(ballot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_ballot_user ON ballot_votes(ballot_id, user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_room ON notifications(room_id, type)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// ==================== User Methods ====================

// UpsertUser inserts the user or refreshes its username/name
func (r *Repository) UpsertUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, name = excluded.name`,
		user.ID, user.Username, user.Name)
	return err
}

// GetUser retrieves a user by id
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, username, name FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, username, name FROM users WHERE username = ?`, username)
}

func (r *Repository) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Name = name.String
	return &u, nil
}

// ==================== Room Methods ====================

// CreateRoom inserts a room and its admin membership in one transaction
func (r *Repository) CreateRoom(ctx context.Context, name, description, adminID string, visibility models.Visibility, inviteToken string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (name, description, admin_id, visibility, invite_token)
		VALUES (?, ?, ?, ?, ?)`,
		name, description, adminID, string(visibility), inviteToken)
	if err != nil {
		return 0, err
	}
	roomID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// The admin is always a member with role admin
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id, role) VALUES (?, ?, ?)`,
		roomID, adminID, string(models.RoleAdmin)); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return roomID, nil
}

// GetRoom retrieves a room with its member list in insertion order
func (r *Repository) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	var description, inviteToken sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, admin_id, visibility, invite_token, created_at
		FROM rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Name, &description, &room.AdminID, &room.Visibility, &inviteToken, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	room.Description = description.String
	room.InviteToken = inviteToken.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, role, joined_at FROM room_members
		WHERE room_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		room.Members = append(room.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &room, nil
}

// AddMember appends a membership if absent. The insert is atomic: a losing
// racer observes added=false instead of a duplicate row.
func (r *Repository) AddMember(ctx context.Context, roomID int64, userID string, role models.Role) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO room_members (room_id, user_id, role) VALUES (?, ?, ?)`,
		roomID, userID, string(role))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveMember deletes a membership if present
func (r *Repository) RemoveMember(ctx context.Context, roomID int64, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM room_members WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemberRole returns the user's role in the room, if any
func (r *Repository) MemberRole(ctx context.Context, roomID int64, userID string) (models.Role, bool, error) {
	var role models.Role
	err := r.db.QueryRowContext(ctx, `
		SELECT role FROM room_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

// ==================== Ballot Methods ====================

// CreateBallot inserts a ballot and its choices in one transaction.
// The choice set is immutable after creation.
func (r *Repository) CreateBallot(ctx context.Context, ballot *models.Ballot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO ballots (room_id, title, start_time, end_time, max_choices)
		VALUES (?, ?, ?, ?, ?)`,
		ballot.RoomID, ballot.Title, ballot.StartTime, ballot.EndTime, ballot.MaxChoicesPerVoter)
	if err != nil {
		return 0, err
	}
	ballotID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i := range ballot.Choices {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO choices (ballot_id, text) VALUES (?, ?)`,
			ballotID, ballot.Choices[i].Text)
		if err != nil {
			return 0, err
		}
		choiceID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		ballot.Choices[i].ID = choiceID
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	ballot.ID = ballotID
	return ballotID, nil
}

// GetBallot retrieves a ballot with its choices and vote ledger
func (r *Repository) GetBallot(ctx context.Context, id int64) (*models.Ballot, error) {
	var b models.Ballot
	var start, end sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, room_id, title, start_time, end_time, max_choices, created_at
		FROM ballots WHERE id = ?`, id).
		Scan(&b.ID, &b.RoomID, &b.Title, &start, &end, &b.MaxChoicesPerVoter, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		b.StartTime = &t
	}
	if end.Valid {
		t := end.Time
		b.EndTime = &t
	}

	if err := r.loadChoices(ctx, &b); err != nil {
		return nil, err
	}
	if err := r.loadVoteLedger(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) loadChoices(ctx context.Context, b *models.Ballot) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, text, vote_count FROM choices WHERE ballot_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.Text, &c.VoteCount); err != nil {
			return err
		}
		b.Choices = append(b.Choices, c)
	}
	return rows.Err()
}

func (r *Repository) loadVoteLedger(ctx context.Context, b *models.Ballot) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, choice_id FROM ballot_votes WHERE ballot_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	b.VotedUserIDs = make(map[string][]int64)
	for rows.Next() {
		var userID string
		var choiceID int64
		if err := rows.Scan(&userID, &choiceID); err != nil {
			return err
		}
		b.VotedUserIDs[userID] = append(b.VotedUserIDs[userID], choiceID)
	}
	return rows.Err()
}

// ListBallotsForRoom retrieves all ballots for a room, newest first
func (r *Repository) ListBallotsForRoom(ctx context.Context, roomID int64) ([]models.Ballot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM ballots WHERE room_id = ? ORDER BY id DESC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ballots := make([]models.Ballot, 0, len(ids))
	for _, id := range ids {
		b, err := r.GetBallot(ctx, id)
		if err != nil {
			return nil, err
		}
		ballots = append(ballots, *b)
	}
	return ballots, nil
}

// CastVote records the user's ledger entries and increments the chosen
// tallies. The already-voted check and the writes share one transaction, so
// two concurrent requests from the same user cannot both pass the check.
func (r *Repository) CastVote(ctx context.Context, ballotID int64, userID string, choiceIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballot_votes WHERE ballot_id = ? AND user_id = ?`,
		ballotID, userID).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicate
	}

	for _, choiceID := range choiceIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ballot_votes (ballot_id, user_id, choice_id) VALUES (?, ?, ?)`,
			ballotID, userID, choiceID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE choices SET vote_count = vote_count + 1 WHERE id = ? AND ballot_id = ?`,
			choiceID, ballotID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("choice %d does not belong to ballot %d", choiceID, ballotID)
		}
	}

	return tx.Commit()
}

// ==================== Notification Methods ====================

// CreateNotification inserts a notification with its immutable payload
func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications
			(user_id, type, message, room_id, ballot_id, performer_id, target_user_id, invited_role, request_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, string(n.Type), n.Message,
		nullInt64(n.Data.RoomID), nullInt64(n.Data.BallotID),
		nullString(n.Data.PerformerID), nullString(n.Data.TargetUserID),
		nullString(string(n.Data.InvitedRole)), nullString(n.Data.RequestStatus))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	n.ID = id
	return id, nil
}

const notificationColumns = `id, user_id, type, message, is_read,
	room_id, ballot_id, performer_id, target_user_id, invited_role, request_status, created_at`

// GetNotification retrieves a notification by id
func (r *Repository) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications retrieves a user's notifications, newest first
func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var roomID, ballotID sql.NullInt64
	var performerID, targetUserID, invitedRole, requestStatus sql.NullString
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.IsRead,
		&roomID, &ballotID, &performerID, &targetUserID, &invitedRole, &requestStatus, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Data = models.NotificationData{
		RoomID:        roomID.Int64,
		BallotID:      ballotID.Int64,
		PerformerID:   performerID.String,
		TargetUserID:  targetUserID.String,
		InvitedRole:   models.Role(invitedRole.String),
		RequestStatus: requestStatus.String,
	}
	return &n, nil
}

// MarkNotificationRead marks a notification read for its recipient
func (r *Repository) MarkNotificationRead(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResolveNotification resolves a still-unresolved notification. The is_read
// guard in the filter makes resolution terminal: of two racing resolvers,
// exactly one observes true.
func (r *Repository) ResolveNotification(ctx context.Context, id int64, message, requestStatus string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, message = ?, request_status = ?
		WHERE id = ? AND is_read = 0`,
		message, nullString(requestStatus), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasPendingInvitation reports whether an unresolved room invitation exists
// for the target user and room
func (r *Repository) HasPendingInvitation(ctx context.Context, roomID int64, targetUserID string) (bool, error) {
	return r.exists(ctx, `
		SELECT 1 FROM notifications
		WHERE type = ? AND room_id = ? AND target_user_id = ? AND is_read = 0`,
		string(models.NotificationRoomInvitation), roomID, targetUserID)
}

// HasPendingJoinRequest reports whether an unresolved join request exists
// from the requester for the room
func (r *Repository) HasPendingJoinRequest(ctx context.Context, roomID int64, requesterID string) (bool, error) {
	return r.exists(ctx, `
		SELECT 1 FROM notifications
		WHERE type = ? AND room_id = ? AND performer_id = ? AND is_read = 0`,
		string(models.NotificationJoinRequestReceived), roomID, requesterID)
}

// DeletePendingJoinRequest cancels the requester's unresolved join request.
// A resolve racing this cancel is settled by whichever conditional statement
// wins; the loser observes false.
func (r *Repository) DeletePendingJoinRequest(ctx context.Context, roomID int64, requesterID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE type = ? AND room_id = ? AND performer_id = ? AND is_read = 0`,
		string(models.NotificationJoinRequestReceived), roomID, requesterID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

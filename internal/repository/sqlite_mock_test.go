package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/agoranet/agora/internal/models"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

// TestGetRoom_MemberScanError tests row scanning error in the member list
func TestGetRoom_MemberScanError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	roomRows := sqlmock.NewRows([]string{"id", "name", "description", "admin_id", "visibility", "invite_token", "created_at"}).
		AddRow(1, "room", nil, "admin1", "private", "tok", time.Now())
	mock.ExpectQuery("FROM rooms").WillReturnRows(roomRows)

	// joined_at should be a time, not a bare word
	memberRows := sqlmock.NewRows([]string{"user_id", "role", "joined_at"}).
		AddRow("bob", "voter", "not-a-time")
	mock.ExpectQuery("FROM room_members").WillReturnRows(memberRows)

	_, err := repo.GetRoom(ctx, 1)
	if err == nil {
		t.Error("expected error from member scan failure, got nil")
	}
}

// TestListNotifications_ScanError tests row scanning error
func TestListNotifications_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "message", "is_read",
		"room_id", "ballot_id", "performer_id", "target_user_id", "invited_role", "request_status", "created_at"}).
		AddRow("bad-id", "bob", "new_ballot", "msg", false, nil, nil, nil, nil, nil, nil, time.Now())
	mock.ExpectQuery("FROM notifications").WillReturnRows(rows)

	_, err := repo.ListNotifications(ctx, "bob")
	if err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestAddMember_ExecError tests database error propagation
func TestAddMember_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT OR IGNORE INTO room_members").
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.AddMember(ctx, 1, "bob", models.RoleVoter)
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// TestCastVote_BeginError tests transaction start failure
func TestCastVote_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err := repo.CastVote(ctx, 1, "bob", []int64{2})
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// TestCastVote_DuplicateCheckError tests failure of the already-voted query
func TestCastVote_DuplicateCheckError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ballot_votes").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.CastVote(ctx, 1, "bob", []int64{2})
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// TestCastVote_InsertRollsBack tests that a failed ledger insert aborts the
// transaction
func TestCastVote_InsertRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ballot_votes").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO ballot_votes").
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := repo.CastVote(ctx, 1, "bob", []int64{2})
	if err == nil {
		t.Error("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestCreateRoom_MemberInsertRollsBack tests that a failed admin membership
// insert aborts room creation
func TestCreateRoom_MemberInsertRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rooms").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO room_members").
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	_, err := repo.CreateRoom(ctx, "room", "", "admin1", models.VisibilityPrivate, "tok")
	if err == nil {
		t.Error("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestResolveNotification_ExecError tests database error propagation
func TestResolveNotification_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE notifications").
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.ResolveNotification(ctx, 1, "done", "")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// TestUpsertUser_ExecError tests database error propagation
func TestUpsertUser_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("disk I/O error"))

	err := repo.UpsertUser(ctx, models.User{ID: "u1", Username: "alice"})
	if err == nil {
		t.Error("expected error, got nil")
	}
}

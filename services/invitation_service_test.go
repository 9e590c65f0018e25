package services

import (
	"errors"
	"testing"
	"time"

	"profile-hub-api/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func invitationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"invitation_id", "org_id", "task_id", "email", "token", "sent_at", "expires_at", "confirmed_at"})
}

func TestInviteReturnsExistingPendingInvitation(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	taskID := 5
	mock.ExpectQuery("SELECT \\* FROM `user_invitations`").
		WillReturnRows(invitationRows().
			AddRow(11, 1, taskID, "jane@example.org", "tok-abc", now.Add(-time.Hour), now.Add(24*time.Hour), nil))

	org := &models.Organisation{OrgID: 1, Name: "Test University"}
	task := &models.Task{TaskID: taskID}
	// No insert and no mail delivery are expected: the pending invitation
	// on file satisfies the request.
	inv, err := NewInvitationService(db).Invite(org, task, "jane@example.org", "Jane", "Doe", nil)
	if err != nil {
		t.Fatal(err)
	}
	if inv.InvitationID != 11 || inv.Token != "tok-abc" {
		t.Errorf("invitation = %+v", inv)
	}
}

func TestConfirmUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `user_invitations`").WillReturnRows(invitationRows())

	_, err := NewInvitationService(db).Confirm("nope", 3)
	var fv *FieldValidationError
	if !errors.As(err, &fv) {
		t.Fatalf("expected FieldValidationError, got %v", err)
	}
	if fv.Message != "Unknown or expired invitation token" {
		t.Errorf("message = %q", fv.Message)
	}
}

func TestConfirmExpiredToken(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT \\* FROM `user_invitations`").
		WillReturnRows(invitationRows().
			AddRow(11, 1, nil, "jane@example.org", "tok-abc", now.Add(-48*time.Hour), now.Add(-time.Hour), nil))

	_, err := NewInvitationService(db).Confirm("tok-abc", 3)
	if err == nil || err.Error() != "Unknown or expired invitation token" {
		t.Errorf("error = %v", err)
	}
}

func TestConfirmBindsUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT \\* FROM `user_invitations`").
		WillReturnRows(invitationRows().
			AddRow(11, 1, nil, "jane@example.org", "tok-abc", now.Add(-time.Hour), now.Add(24*time.Hour), nil))
	mock.ExpectExec("UPDATE `user_invitations` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inv, err := NewInvitationService(db).Confirm("tok-abc", 3)
	if err != nil {
		t.Fatal(err)
	}
	if inv.ConfirmedAt == nil || inv.InviteeID == nil || *inv.InviteeID != 3 {
		t.Errorf("invitation = %+v", inv)
	}
}

func TestIsPending(t *testing.T) {
	now := time.Now().UTC()
	inv := models.UserInvitation{ExpiresAt: now.Add(time.Hour)}
	if !inv.IsPending(now) {
		t.Error("unconfirmed unexpired invitation should be pending")
	}
	inv.ConfirmedAt = &now
	if inv.IsPending(now) {
		t.Error("confirmed invitation should not be pending")
	}
}

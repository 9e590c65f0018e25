package services

import (
	"testing"
	"time"

	"profile-hub-api/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestActivateRecords(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE `affiliation_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE `tasks` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	task := &models.Task{TaskID: 5, TaskType: models.TaskTypeAffiliation}
	affected, err := NewBatchService(db).ActivateRecords(task, []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if affected != 2 {
		t.Errorf("affected = %d", affected)
	}
	if task.ExpiresAt == nil {
		t.Fatal("activation should refresh the task expiry")
	}
	if remaining := time.Until(*task.ExpiresAt); remaining < DefaultTaskTTL-time.Minute {
		t.Errorf("expiry too close: %v", remaining)
	}
}

func TestResetRecordsWithInvitees(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `funding_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `funding_invitees` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE `tasks` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	done := time.Now().UTC()
	task := &models.Task{TaskID: 5, TaskType: models.TaskTypeFunding, CompletedAt: &done}
	affected, err := NewBatchService(db).ResetRecords(task, []int{7})
	if err != nil {
		t.Fatal(err)
	}
	if affected != 1 {
		t.Errorf("affected = %d", affected)
	}
	if task.CompletedAt != nil {
		t.Error("reset should reopen a completed task")
	}
}

func TestResetRecordsSimpleKind(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `property_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	task := &models.Task{TaskID: 5, TaskType: models.TaskTypeProperty}
	affected, err := NewBatchService(db).ResetAll(task)
	if err != nil {
		t.Fatal(err)
	}
	if affected != 3 {
		t.Errorf("affected = %d", affected)
	}
}

func TestDeleteRecords(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM `work_records`").
		WillReturnResult(sqlmock.NewResult(0, 2))

	task := &models.Task{TaskID: 5, TaskType: models.TaskTypeWork}
	affected, err := NewBatchService(db).DeleteRecords(task, []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if affected != 2 {
		t.Errorf("affected = %d", affected)
	}
}

func TestInviteeTable(t *testing.T) {
	if got := inviteeTable(models.TaskTypeFunding); got != "funding_invitees" {
		t.Errorf("funding table = %q", got)
	}
	if got := inviteeTable(models.TaskTypeAffiliation); got != "" {
		t.Errorf("affiliation table = %q", got)
	}
}

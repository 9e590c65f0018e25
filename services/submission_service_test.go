package services

import (
	"errors"
	"strings"
	"testing"

	"profile-hub-api/models"
)

func TestSubmitOutcomeSuccess(t *testing.T) {
	var rs models.RecordStatusFields
	terminal, failed := submitOutcome(&rs, nil, statusProcessedLine)
	if !terminal || failed {
		t.Errorf("terminal = %v, failed = %v", terminal, failed)
	}
	if rs.ProcessedAt == nil {
		t.Error("processed_at not stamped")
	}
	if rs.Status == nil || !strings.HasSuffix(*rs.Status, statusProcessedLine) {
		t.Errorf("status = %v", rs.Status)
	}
}

func TestSubmitOutcomeRegistryRejection(t *testing.T) {
	var rs models.RecordStatusFields
	err := &OrcidError{StatusCode: 400, DeveloperMessage: "Invalid value"}
	terminal, failed := submitOutcome(&rs, err, statusProcessedLine)
	if !terminal || !failed {
		t.Errorf("terminal = %v, failed = %v", terminal, failed)
	}
	// A registry rejection is final: the record must not be retried.
	if rs.ProcessedAt == nil {
		t.Error("processed_at not stamped on rejection")
	}
	if !strings.Contains(deref(rs.Status), "Error: registry error 400: Invalid value") {
		t.Errorf("status = %v", rs.Status)
	}
}

func TestSubmitOutcomeValidationError(t *testing.T) {
	var rs models.RecordStatusFields
	err := &FieldValidationError{Message: "Missing put-code. Cannot delete a record without put-code."}
	terminal, failed := submitOutcome(&rs, err, statusDeletedLine)
	if !terminal || !failed {
		t.Errorf("terminal = %v, failed = %v", terminal, failed)
	}
	if rs.ProcessedAt == nil {
		t.Error("invalid records should reach a terminal state")
	}
	if !strings.Contains(deref(rs.Status), "Error: Missing put-code.") {
		t.Errorf("status = %v", deref(rs.Status))
	}
}

func TestSubmitOutcomeTransportError(t *testing.T) {
	var rs models.RecordStatusFields
	terminal, failed := submitOutcome(&rs, errors.New("connection refused"), statusProcessedLine)
	if terminal || !failed {
		t.Errorf("terminal = %v, failed = %v", terminal, failed)
	}
	// A transport error leaves the record pending for the next run.
	if rs.ProcessedAt != nil {
		t.Error("processed_at stamped on a retryable failure")
	}
	if !strings.Contains(deref(rs.Status), "Error: connection refused") {
		t.Errorf("status = %v", rs.Status)
	}
}

func TestAppendLine(t *testing.T) {
	s := appendLine(nil, "first")
	if deref(s) != "first" {
		t.Errorf("status = %q", deref(s))
	}
	s = appendLine(s, "second")
	if deref(s) != "first\nsecond" {
		t.Errorf("status = %q", deref(s))
	}
}

func TestInvStatusLineFormat(t *testing.T) {
	line := invStatusLine(statusInvitationLine)
	if !strings.HasSuffix(line, ": "+statusInvitationLine) {
		t.Errorf("line = %q", line)
	}
	// Timestamp prefix: "2006-01-02 15:04:05".
	if len(line) < 21 || line[4] != '-' || line[10] != ' ' || line[13] != ':' {
		t.Errorf("timestamp prefix malformed: %q", line)
	}
}

func TestGuardContainsPanic(t *testing.T) {
	ran := false
	guard("record 1", func() { panic("boom") })
	guard("record 2", func() { ran = true })
	if !ran {
		t.Error("guard stopped subsequent work")
	}
}

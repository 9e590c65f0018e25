package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"profile-hub-api/models"
)

func TestWebhookDelivery(t *testing.T) {
	var calls int32
	var last WebhookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&last); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	queue := NewJobQueue(1, 16)
	ws := NewWebhookService(queue)
	url := srv.URL
	org := &models.Organisation{WebhooksEnabled: true, WebhookURL: &url}
	task := &models.Task{TaskID: 9}

	ws.NotifyRecordEvent(org, task, 41, "jane@example.org", "", EventRecordProcessed)
	// Same transition again: the at-most-once key suppresses it.
	ws.NotifyRecordEvent(org, task, 41, "jane@example.org", "", EventRecordProcessed)
	// A different outcome for the same record is a new transition.
	ws.NotifyRecordEvent(org, task, 41, "jane@example.org", "", EventRecordErrored)
	queue.Close()

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("deliveries = %d, want 2", got)
	}
	if last.TaskID != 9 || last.RecordID != 41 || last.Email != "jane@example.org" {
		t.Errorf("event = %+v", last)
	}
	if last.UpdatedAt == "" {
		t.Error("updated-at missing")
	}
}

func TestWebhookSkippedWhenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected delivery")
	}))
	defer srv.Close()

	queue := NewJobQueue(1, 16)
	ws := NewWebhookService(queue)
	url := srv.URL

	ws.NotifyRecordEvent(&models.Organisation{WebhooksEnabled: false, WebhookURL: &url},
		&models.Task{TaskID: 1}, 1, "", "", EventRecordProcessed)
	ws.NotifyRecordEvent(&models.Organisation{WebhooksEnabled: true},
		&models.Task{TaskID: 1}, 2, "", "", EventRecordProcessed)
	queue.Close()
}

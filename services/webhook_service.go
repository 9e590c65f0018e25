package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"profile-hub-api/models"
)

// WebhookEvent is the body posted to an organisation's webhook URL when a
// record reaches a terminal state.
type WebhookEvent struct {
	Type      string `json:"type"`
	TaskID    int    `json:"task-id"`
	RecordID  int    `json:"record-id"`
	Email     string `json:"email,omitempty"`
	Orcid     string `json:"orcid,omitempty"`
	UpdatedAt string `json:"updated-at"`
}

// WebhookService delivers record-outcome notifications to organisations
// that registered a webhook URL. Delivery is fire-and-forget: at most one
// attempt per record transition, failures are logged and never retried.
type WebhookService struct {
	queue  *JobQueue
	client *http.Client
}

func NewWebhookService(queue *JobQueue) *WebhookService {
	if queue == nil {
		queue = NewJobQueue(2, 256)
	}
	return &WebhookService{
		queue:  queue,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyRecordEvent schedules a webhook delivery for one record transition.
// The (task, record, event) triple keys the at-most-once guarantee.
func (s *WebhookService) NotifyRecordEvent(org *models.Organisation, task *models.Task, recordID int, email, orcid, event string) {
	if org == nil || !org.WebhooksEnabled || org.WebhookURL == nil || *org.WebhookURL == "" {
		return
	}
	url := *org.WebhookURL
	ev := WebhookEvent{
		Type:      event,
		TaskID:    task.TaskID,
		RecordID:  recordID,
		Email:     email,
		Orcid:     orcid,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	key := fmt.Sprintf("webhook:%d:%d:%s", task.TaskID, recordID, event)
	s.queue.EnqueueOnce(key, func() {
		s.deliver(url, ev)
	})
}

func (s *WebhookService) deliver(url string, ev WebhookEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to encode webhook event: %v", err)
		return
	}
	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Webhook delivery to %s failed: %v", url, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("Webhook delivery to %s rejected with status %d", url, resp.StatusCode)
	}
}

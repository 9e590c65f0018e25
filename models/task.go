package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TaskType identifies the kind of records a batch task carries.
type TaskType int

const (
	TaskTypeNone TaskType = iota
	TaskTypeAffiliation
	TaskTypeFunding
	TaskTypeWork
	TaskTypePeerReview
	TaskTypeSync
	TaskTypeOtherID
	TaskTypeProperty
)

var taskTypeNames = map[TaskType]string{
	TaskTypeAffiliation: "AFFILIATION",
	TaskTypeFunding:     "FUNDING",
	TaskTypeWork:        "WORK",
	TaskTypePeerReview:  "PEER_REVIEW",
	TaskTypeSync:        "SYNC",
	TaskTypeOtherID:     "OTHER_ID",
	TaskTypeProperty:    "PROPERTY",
}

func (t TaskType) String() string {
	if name, ok := taskTypeNames[t]; ok {
		return name
	}
	return "NONE"
}

// ParseTaskType resolves a task type from its name, case-insensitively.
func ParseTaskType(name string) (TaskType, error) {
	needle := strings.ToUpper(strings.TrimSpace(name))
	for tt, n := range taskTypeNames {
		if n == needle {
			return tt, nil
		}
	}
	return TaskTypeNone, fmt.Errorf("unknown task type %q", name)
}

func (t TaskType) Value() (driver.Value, error) { return int64(t), nil }

func (t *TaskType) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = TaskType(v)
	case []byte:
		tt, err := ParseTaskType(string(v))
		if err != nil {
			return err
		}
		*t = tt
	case string:
		tt, err := ParseTaskType(v)
		if err != nil {
			return err
		}
		*t = tt
	case nil:
		*t = TaskTypeNone
	default:
		return fmt.Errorf("cannot scan task type from %T", src)
	}
	return nil
}

// Task represents one batch of records of a single kind loaded from an
// uploaded file. Deleting a task cascades to its records and their
// sub-entities.
type Task struct {
	TaskID            int        `gorm:"primaryKey;column:task_id" json:"task_id"`
	OrgID             int        `gorm:"column:org_id" json:"org_id"`
	CreatedBy         int        `gorm:"column:created_by" json:"created_by"`
	Filename          string     `gorm:"column:filename" json:"filename"`
	TaskType          TaskType   `gorm:"column:task_type" json:"task_type"`
	CompletedAt       *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ExpiresAt         *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	ExpiryEmailSentAt *time.Time `gorm:"column:expiry_email_sent_at" json:"expiry_email_sent_at,omitempty"`
	Status            *string    `gorm:"column:status" json:"status,omitempty"`
	CreateAt          time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt          time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Org     Organisation `gorm:"foreignKey:OrgID" json:"org,omitempty"`
	Creator User         `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

// IsExpiryEmailSent reports whether the expiry reminder has gone out.
func (t *Task) IsExpiryEmailSent() bool {
	return t.ExpiryEmailSentAt != nil
}

// DisplayName mirrors the filename or a synthetic label for sync tasks.
func (t *Task) DisplayName() string {
	if t.TaskType == TaskTypeSync {
		return "Synchronization task"
	}
	if t.Filename != "" {
		return t.Filename
	}
	label := strings.ToLower(t.TaskType.String())
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return fmt.Sprintf("%s record processing task #%d", label, t.TaskID)
}

// RecordStatusFields is embedded by every record kind and drives the
// per-record batch state machine:
// processed_at is set only on a terminal submission outcome,
// is_active marks the record as selected for submission.
type RecordStatusFields struct {
	IsActive    bool       `gorm:"column:is_active" json:"is_active"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	Status      *string    `gorm:"column:status" json:"status,omitempty"`
}

// AddStatusLine appends a dated line to the record status.
func (r *RecordStatusFields) AddStatusLine(line string) {
	ts := time.Now().UTC().Format("2006-01-02 15:04:05")
	entry := ts + ": " + line
	if r.Status == nil || *r.Status == "" {
		r.Status = &entry
		return
	}
	joined := *r.Status + "\n" + entry
	r.Status = &joined
}

// IsProcessed reports whether the record reached a terminal state.
func (r *RecordStatusFields) IsProcessed() bool {
	return r.ProcessedAt != nil
}

// HasError reports whether the last processing attempt failed.
func (r *RecordStatusFields) HasError() bool {
	return r.Status != nil && strings.Contains(strings.ToLower(*r.Status), "error")
}

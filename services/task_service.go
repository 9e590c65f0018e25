package services

import (
	"errors"
	"time"

	"profile-hub-api/config"
	"profile-hub-api/models"

	"gorm.io/gorm"
)

// TaskService is the store for batch tasks and their records.
type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	if db == nil {
		db = config.DB
	}
	return &TaskService{db: db}
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	OrgID     int
	TaskType  *models.TaskType
	Completed *bool
}

// GetTask returns the bare task row.
func (s *TaskService) GetTask(taskID int) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, "task_id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// GetTaskForOrg returns the task only when it belongs to the organisation.
func (s *TaskService) GetTaskForOrg(taskID, orgID int) (*models.Task, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.OrgID != orgID {
		return nil, &AuthorizationError{Message: "Access denied! You cannot access this task."}
	}
	return task, nil
}

// ListTasks returns the organisation's tasks, newest first.
func (s *TaskService) ListTasks(filter TaskFilter) ([]models.Task, error) {
	q := s.db.Model(&models.Task{}).Order("create_at DESC")
	if filter.OrgID != 0 {
		q = q.Where("org_id = ?", filter.OrgID)
	}
	if filter.TaskType != nil {
		q = q.Where("task_type = ?", *filter.TaskType)
	}
	if filter.Completed != nil {
		if *filter.Completed {
			q = q.Where("completed_at IS NOT NULL")
		} else {
			q = q.Where("completed_at IS NULL")
		}
	}
	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// DeleteTask removes the task; record rows and their sub-entities go with it
// through the cascading foreign keys.
func (s *TaskService) DeleteTask(taskID int) error {
	res := s.db.Delete(&models.Task{}, "task_id = ?", taskID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// recordModel returns an empty record slice pointer for the task type.
func recordModel(taskType models.TaskType) (interface{}, error) {
	switch taskType {
	case models.TaskTypeAffiliation:
		return &[]models.AffiliationRecord{}, nil
	case models.TaskTypeFunding:
		return &[]models.FundingRecord{}, nil
	case models.TaskTypeWork:
		return &[]models.WorkRecord{}, nil
	case models.TaskTypePeerReview:
		return &[]models.PeerReviewRecord{}, nil
	case models.TaskTypeProperty:
		return &[]models.PropertyRecord{}, nil
	case models.TaskTypeOtherID:
		return &[]models.OtherIDRecord{}, nil
	}
	return nil, ErrWrongTaskType
}

// RecordFilter narrows record listings within a task.
type RecordFilter struct {
	ActiveOnly    bool
	ProcessedOnly bool
	PendingOnly   bool
}

func (f RecordFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.ProcessedOnly {
		q = q.Where("processed_at IS NOT NULL")
	}
	if f.PendingOnly {
		q = q.Where("processed_at IS NULL")
	}
	return q.Order("record_id")
}

// ListAffiliationRecords returns the task's affiliation records.
func (s *TaskService) ListAffiliationRecords(taskID int, filter RecordFilter) ([]models.AffiliationRecord, error) {
	var records []models.AffiliationRecord
	err := filter.apply(s.db.Where("task_id = ?", taskID)).Find(&records).Error
	return records, err
}

// ListFundingRecords returns the task's funding records with their
// sub-entities preloaded.
func (s *TaskService) ListFundingRecords(taskID int, filter RecordFilter) ([]models.FundingRecord, error) {
	var records []models.FundingRecord
	err := filter.apply(s.db.Where("task_id = ?", taskID)).
		Preload("Invitees").Preload("Contributors").Preload("ExternalIDs").
		Find(&records).Error
	return records, err
}

// ListWorkRecords returns the task's work records with their sub-entities
// preloaded.
func (s *TaskService) ListWorkRecords(taskID int, filter RecordFilter) ([]models.WorkRecord, error) {
	var records []models.WorkRecord
	err := filter.apply(s.db.Where("task_id = ?", taskID)).
		Preload("Invitees").Preload("Contributors").Preload("ExternalIDs").
		Find(&records).Error
	return records, err
}

// ListPeerReviewRecords returns the task's peer-review records with their
// sub-entities preloaded.
func (s *TaskService) ListPeerReviewRecords(taskID int, filter RecordFilter) ([]models.PeerReviewRecord, error) {
	var records []models.PeerReviewRecord
	err := filter.apply(s.db.Where("task_id = ?", taskID)).
		Preload("Invitees").Preload("ExternalIDs").
		Find(&records).Error
	return records, err
}

// ListPropertyRecords returns the task's property records.
func (s *TaskService) ListPropertyRecords(taskID int, filter RecordFilter) ([]models.PropertyRecord, error) {
	var records []models.PropertyRecord
	err := filter.apply(s.db.Where("task_id = ?", taskID)).Find(&records).Error
	return records, err
}

// ListOtherIDRecords returns the task's other-id records.
func (s *TaskService) ListOtherIDRecords(taskID int, filter RecordFilter) ([]models.OtherIDRecord, error) {
	var records []models.OtherIDRecord
	err := filter.apply(s.db.Where("task_id = ?", taskID)).Find(&records).Error
	return records, err
}

// TaskProgress summarises how far a task's records have gone.
type TaskProgress struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Errors    int64 `json:"errors"`
}

// Progress counts the task's records by outcome.
func (s *TaskService) Progress(task *models.Task) (*TaskProgress, error) {
	model, err := recordModel(task.TaskType)
	if err != nil {
		return nil, err
	}
	var p TaskProgress
	base := s.db.Model(model).Where("task_id = ?", task.TaskID)
	if err := base.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("processed_at IS NOT NULL").Count(&p.Processed).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("processed_at IS NOT NULL AND LOWER(status) LIKE ?", "%error%").
		Count(&p.Errors).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkCompletedIfDone stamps completed_at once every record of the task has
// reached a terminal state.
func (s *TaskService) MarkCompletedIfDone(task *models.Task) error {
	p, err := s.Progress(task)
	if err != nil {
		return err
	}
	if p.Total == 0 || p.Processed < p.Total || task.CompletedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	task.CompletedAt = &now
	return s.db.Model(task).Update("completed_at", now).Error
}

// ExtendExpiry pushes the task's expiry out from now.
func (s *TaskService) ExtendExpiry(task *models.Task, ttl time.Duration) error {
	expires := time.Now().UTC().Add(ttl)
	task.ExpiresAt = &expires
	return s.db.Model(task).Update("expires_at", expires).Error
}

// FindExpired returns incomplete tasks past their expiry.
func (s *TaskService) FindExpired(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.
		Where("completed_at IS NULL AND expires_at IS NOT NULL AND expires_at < ?", now).
		Find(&tasks).Error
	return tasks, err
}

// FindExpiring returns incomplete tasks that expire within the window and
// have not had their reminder sent yet.
func (s *TaskService) FindExpiring(now time.Time, window time.Duration) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.
		Where("completed_at IS NULL AND expiry_email_sent_at IS NULL AND expires_at IS NOT NULL").
		Where("expires_at BETWEEN ? AND ?", now, now.Add(window)).
		Find(&tasks).Error
	return tasks, err
}

// MarkExpiryEmailSent records that the expiry reminder has gone out.
func (s *TaskService) MarkExpiryEmailSent(task *models.Task) error {
	now := time.Now().UTC()
	task.ExpiryEmailSentAt = &now
	return s.db.Model(task).Update("expiry_email_sent_at", now).Error
}

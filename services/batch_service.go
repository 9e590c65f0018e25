package services

import (
	"fmt"
	"time"

	"profile-hub-api/config"
	"profile-hub-api/models"

	"gorm.io/gorm"
)

// DefaultTaskTTL is how long an activated task stays live before the
// expiry sweep reclaims it.
const DefaultTaskTTL = 4 * 7 * 24 * time.Hour

const resetStatusLine = "The record was reset"

// BatchService drives the per-record state machine of a task: activation,
// reset and record deletion.
type BatchService struct {
	db    *gorm.DB
	tasks *TaskService
}

func NewBatchService(db *gorm.DB) *BatchService {
	if db == nil {
		db = config.DB
	}
	return &BatchService{db: db, tasks: NewTaskService(db)}
}

// inviteeModel returns an empty invitee slice pointer for task types whose
// records carry invitees.
func inviteeModel(taskType models.TaskType) interface{} {
	switch taskType {
	case models.TaskTypeFunding:
		return &[]models.FundingInvitee{}
	case models.TaskTypeWork:
		return &[]models.WorkInvitee{}
	case models.TaskTypePeerReview:
		return &[]models.PeerReviewInvitee{}
	}
	return nil
}

// inviteeTable names the invitee table joined on record_id, or "".
func inviteeTable(taskType models.TaskType) string {
	switch taskType {
	case models.TaskTypeFunding:
		return "funding_invitees"
	case models.TaskTypeWork:
		return "work_invitees"
	case models.TaskTypePeerReview:
		return "peer_review_invitees"
	}
	return ""
}

// ActivateRecords marks the given records of a task as selected for
// submission. Records already in a terminal state are left alone.
// Activation refreshes the task expiry.
func (s *BatchService) ActivateRecords(task *models.Task, recordIDs []int) (int64, error) {
	model, err := recordModel(task.TaskType)
	if err != nil {
		return 0, err
	}
	q := s.db.Model(model).
		Where("task_id = ? AND processed_at IS NULL", task.TaskID)
	if len(recordIDs) > 0 {
		q = q.Where("record_id IN ?", recordIDs)
	}
	res := q.Update("is_active", true)
	if res.Error != nil {
		return 0, res.Error
	}
	if err := s.tasks.ExtendExpiry(task, DefaultTaskTTL); err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

// ActivateAll selects every unprocessed record of the task.
func (s *BatchService) ActivateAll(task *models.Task) (int64, error) {
	return s.ActivateRecords(task, nil)
}

// ResetRecords returns the given records (or all, when recordIDs is empty)
// of a task to the pending state: the terminal marker is cleared, a reset
// line is appended to the status trail, and the invitee outcomes of
// composite records are cleared with them. Resetting reopens a completed
// task.
func (s *BatchService) ResetRecords(task *models.Task, recordIDs []int) (int64, error) {
	var affected int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		model, err := recordModel(task.TaskType)
		if err != nil {
			return err
		}
		ts := time.Now().UTC().Format("2006-01-02 15:04:05")
		line := fmt.Sprintf("%s: %s", ts, resetStatusLine)

		q := tx.Model(model).Where("task_id = ?", task.TaskID)
		if len(recordIDs) > 0 {
			q = q.Where("record_id IN ?", recordIDs)
		}
		res := q.Updates(map[string]interface{}{
			"processed_at": nil,
			"is_active":    true,
			"status": gorm.Expr(
				"CASE WHEN status IS NULL OR status = '' THEN ? ELSE CONCAT(status, '\n', ?) END",
				line, line),
		})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		if invs := inviteeModel(task.TaskType); invs != nil {
			table := inviteeTable(task.TaskType)
			single, err := recordModelSingle(task.TaskType)
			if err != nil {
				return err
			}
			sub := tx.Model(single).
				Select("record_id").Where("task_id = ?", task.TaskID)
			if len(recordIDs) > 0 {
				sub = sub.Where("record_id IN ?", recordIDs)
			}
			if err := tx.Table(table).
				Where("record_id IN (?)", sub).
				Updates(map[string]interface{}{"processed_at": nil, "status": nil}).Error; err != nil {
				return err
			}
		}

		if task.CompletedAt != nil {
			task.CompletedAt = nil
			if err := tx.Model(task).Update("completed_at", nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return affected, err
}

// ResetAll returns every record of the task to the pending state.
func (s *BatchService) ResetAll(task *models.Task) (int64, error) {
	return s.ResetRecords(task, nil)
}

// DeleteRecords removes the given records from the task. Sub-entities go
// with them through the cascading foreign keys.
func (s *BatchService) DeleteRecords(task *models.Task, recordIDs []int) (int64, error) {
	model, err := recordModelSingle(task.TaskType)
	if err != nil {
		return 0, err
	}
	res := s.db.Where("task_id = ? AND record_id IN ?", task.TaskID, recordIDs).Delete(model)
	return res.RowsAffected, res.Error
}

// recordModelSingle returns an empty record struct pointer for the task
// type, for queries that target the table rather than scan rows.
func recordModelSingle(taskType models.TaskType) (interface{}, error) {
	switch taskType {
	case models.TaskTypeAffiliation:
		return &models.AffiliationRecord{}, nil
	case models.TaskTypeFunding:
		return &models.FundingRecord{}, nil
	case models.TaskTypeWork:
		return &models.WorkRecord{}, nil
	case models.TaskTypePeerReview:
		return &models.PeerReviewRecord{}, nil
	case models.TaskTypeProperty:
		return &models.PropertyRecord{}, nil
	case models.TaskTypeOtherID:
		return &models.OtherIDRecord{}, nil
	}
	return nil, ErrWrongTaskType
}

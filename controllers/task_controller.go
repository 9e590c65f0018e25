package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/services"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var formatErr *services.FormatError
	var fieldErr *services.FieldValidationError
	var authErr *services.AuthorizationError
	switch {
	case errors.As(err, &formatErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": formatErr.Error()})
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fieldErr.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, gin.H{"error": authErr.Error()})
	case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrWrongTaskType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func currentOrg(c *gin.Context) (*models.Organisation, bool) {
	orgID, _ := c.Get("orgID")
	var org models.Organisation
	if err := config.DB.First(&org, "org_id = ?", orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organisation not found"})
		return nil, false
	}
	return &org, true
}

func taskForRequest(c *gin.Context) (*models.Task, bool) {
	taskID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return nil, false
	}
	orgID, _ := c.Get("orgID")
	task, err := services.NewTaskService(nil).GetTaskForOrg(taskID, orgID.(int))
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return task, true
}

// UploadTask ingests a batch file and creates a task of the requested kind
func UploadTask(c *gin.Context) {
	org, ok := currentOrg(c)
	if !ok {
		return
	}
	userID, _ := c.Get("userID")

	taskType, err := models.ParseTaskType(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown task type"})
		return
	}

	filename, data, ok := uploadedFile(c)
	if !ok {
		return
	}

	var task *models.Task
	switch taskType {
	case models.TaskTypeAffiliation:
		task, err = services.NewAffiliationImportService(nil).Load(data, filename, org, userID.(int))
	case models.TaskTypeFunding:
		task, err = services.NewFundingImportService(nil).Load(data, filename, org, userID.(int))
	case models.TaskTypeWork:
		task, err = services.NewWorkImportService(nil).Load(data, filename, org, userID.(int))
	case models.TaskTypePeerReview:
		task, err = services.NewPeerReviewImportService(nil).Load(data, filename, org, userID.(int))
	case models.TaskTypeProperty:
		task, err = services.NewPropertyImportService(nil).Load(data, filename, c.Query("file_type"), org, userID.(int))
	case models.TaskTypeOtherID:
		task, err = services.NewOtherIDImportService(nil).Load(data, filename, org, userID.(int))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown task type"})
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// uploadedFile reads the upload from the multipart form, or the raw body
// when the client posts the file directly.
func uploadedFile(c *gin.Context) (string, []byte, bool) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
			return "", nil, false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
			return "", nil, false
		}
		return file.Filename, data, true
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", nil, false
	}
	filename := c.Query("filename")
	if filename == "" {
		filename = "upload"
	}
	return filename, data, true
}

// GetTasks lists the organisation's tasks
func GetTasks(c *gin.Context) {
	orgID, _ := c.Get("orgID")
	filter := services.TaskFilter{OrgID: orgID.(int)}

	if t := c.Query("type"); t != "" {
		tt, err := models.ParseTaskType(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown task type"})
			return
		}
		filter.TaskType = &tt
	}
	if v := c.Query("completed"); v != "" {
		completed := v == "true" || v == "1"
		filter.Completed = &completed
	}

	tasks, err := services.NewTaskService(nil).ListTasks(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTask returns one task with its progress counters
func GetTask(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	progress, err := services.NewTaskService(nil).Progress(task)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "progress": progress})
}

// GetTaskRecords returns the task's records
func GetTaskRecords(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	filter := services.RecordFilter{
		ActiveOnly:    c.Query("active") == "true",
		ProcessedOnly: c.Query("processed") == "true",
		PendingOnly:   c.Query("pending") == "true",
	}

	svc := services.NewTaskService(nil)
	var records interface{}
	var err error
	switch task.TaskType {
	case models.TaskTypeAffiliation:
		records, err = svc.ListAffiliationRecords(task.TaskID, filter)
	case models.TaskTypeFunding:
		records, err = svc.ListFundingRecords(task.TaskID, filter)
	case models.TaskTypeWork:
		records, err = svc.ListWorkRecords(task.TaskID, filter)
	case models.TaskTypePeerReview:
		records, err = svc.ListPeerReviewRecords(task.TaskID, filter)
	case models.TaskTypeProperty:
		records, err = svc.ListPropertyRecords(task.TaskID, filter)
	case models.TaskTypeOtherID:
		records, err = svc.ListOtherIDRecords(task.TaskID, filter)
	default:
		err = services.ErrWrongTaskType
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.TaskID, "records": records})
}

// DeleteTask removes a task with all of its records
func DeleteTask(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	if err := services.NewTaskService(nil).DeleteTask(task.TaskID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ExportTask renders the task in the requested format
func ExportTask(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", services.FormatJSON))
	if format == "yml" {
		format = services.FormatYAML
	}

	data, err := services.NewExportService(nil).Export(task, format)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	base := strings.TrimSuffix(task.Filename, filepath.Ext(task.Filename))
	if base == "" {
		base = fmt.Sprintf("task-%d", task.TaskID)
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s.%s", base, format)))
	c.Data(http.StatusOK, services.ContentType(format), data)
}

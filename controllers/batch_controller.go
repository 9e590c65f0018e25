package controllers

import (
	"context"
	"net/http"

	"profile-hub-api/services"

	"github.com/gin-gonic/gin"
)

type recordSelection struct {
	RecordIDs []int `json:"record_ids"`
}

// Shared background queue for submissions and webhook deliveries.
var (
	jobQueue       = services.NewJobQueue(4, 512)
	webhookService = services.NewWebhookService(jobQueue)
)

// ActivateRecords marks records of a task as selected for submission and
// kicks off processing in the background
func ActivateRecords(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	var sel recordSelection
	_ = c.ShouldBindJSON(&sel)

	affected, err := services.NewBatchService(nil).ActivateRecords(task, sel.RecordIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	submission := services.NewSubmissionService(nil, nil, webhookService)
	jobQueue.Enqueue(func() {
		_ = submission.ProcessTask(context.Background(), task)
	})

	c.JSON(http.StatusOK, gin.H{
		"message":  "Records activated",
		"affected": affected,
	})
}

// ResetRecords returns records of a task to the pending state
func ResetRecords(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	var sel recordSelection
	_ = c.ShouldBindJSON(&sel)

	affected, err := services.NewBatchService(nil).ResetRecords(task, sel.RecordIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Records reset",
		"affected": affected,
	})
}

// DeleteRecords removes records from a task
func DeleteRecords(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	var sel recordSelection
	if err := c.ShouldBindJSON(&sel); err != nil || len(sel.RecordIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "record_ids is required"})
		return
	}

	affected, err := services.NewBatchService(nil).DeleteRecords(task, sel.RecordIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Records deleted",
		"affected": affected,
	})
}

// ProcessTask forces a submission run for the task's active records
func ProcessTask(c *gin.Context) {
	task, ok := taskForRequest(c)
	if !ok {
		return
	}
	submission := services.NewSubmissionService(nil, nil, webhookService)
	jobQueue.Enqueue(func() {
		_ = submission.ProcessTask(context.Background(), task)
	})
	c.JSON(http.StatusAccepted, gin.H{"message": "Task queued for processing"})
}

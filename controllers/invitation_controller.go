package controllers

import (
	"net/http"

	"profile-hub-api/services"

	"github.com/gin-gonic/gin"
)

// ConfirmInvitation redeems an invitation token for the logged-in user
func ConfirmInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	userID, _ := c.Get("userID")

	inv, err := services.NewInvitationService(nil).Confirm(token, userID.(int))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Invitation confirmed",
		"invitation": inv,
	})
}

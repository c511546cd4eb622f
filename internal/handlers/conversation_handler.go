package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/helpers"
	"github.com/farellandr/homerental/internal/middleware"
)

type StartConversationRequest struct {
	Message string `json:"message" binding:"max=5000"`
}

type MessageRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

func StartConversation(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	conversation, err := svc.Conversations.Start(c.Request.Context(), principal, id, req.Message)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func ListConversations(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	inbox, err := svc.Conversations.Inbox(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": inbox})
}

func GetConversationMessages(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	messages, err := svc.Conversations.Open(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func SendMessage(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	message, err := svc.Conversations.Send(c.Request.Context(), principal, id, req.Content)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ConnectWebSocket upgrades the request and registers the caller for live
// message pushes.
func ConnectWebSocket(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	hub := middleware.GetHub(c)
	if hub == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Realtime hub not found.")
		return
	}

	if err := hub.Connect(c.Writer, c.Request, principal.ID); err != nil {
		log.Printf("ConnectWebSocket: upgrade for user %s failed: %v", principal.ID, err)
	}
}

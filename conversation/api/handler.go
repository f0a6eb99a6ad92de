package api

import (
	"net/http"
	"strconv"

	"phone-sim-demo/backend/chat"
	"phone-sim-demo/backend/conversation/models"
	"phone-sim-demo/backend/conversation/service"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	pipeline      *chat.Service
	conversations *service.ConversationService
}

func NewConversationHandler(pipeline *chat.Service, conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{pipeline: pipeline, conversations: conversations}
}

// SendMessageRequest is the body for posting a user message. Trigger
// controls whether the contact composes a reply.
type SendMessageRequest struct {
	Message models.Message `json:"message" binding:"required"`
	Trigger bool           `json:"trigger"`
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	contactID := c.Param("contactId")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.Trigger {
		msg, err := h.pipeline.SendMessage(contactID, req.Message)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": msg})
		return
	}

	result, err := h.pipeline.SubmitTurn(c.Request.Context(), contactID, &req.Message)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"turn": result})
}

// SubmitTurn runs a model turn over the existing log without adding a
// new user message first.
func (h *ConversationHandler) SubmitTurn(c *gin.Context) {
	contactID := c.Param("contactId")

	result, err := h.pipeline.SubmitTurn(c.Request.Context(), contactID, nil)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turn": result})
}

func (h *ConversationHandler) Regenerate(c *gin.Context) {
	contactID := c.Param("contactId")

	result, err := h.pipeline.Regenerate(c.Request.Context(), contactID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turn": result})
}

func (h *ConversationHandler) GetMessages(c *gin.Context) {
	contactID := c.Param("contactId")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, total := h.conversations.History(contactID, limit, offset)
	c.JSON(http.StatusOK, gin.H{"messages": messages, "total": total})
}

type DeleteMessagesRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

func (h *ConversationHandler) DeleteMessages(c *gin.Context) {
	contactID := c.Param("contactId")

	var req DeleteMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed := h.pipeline.DeleteMessages(contactID, req.IDs)
	c.JSON(http.StatusOK, gin.H{"removed": len(removed)})
}

type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *ConversationHandler) EditMessage(c *gin.Context) {
	contactID := c.Param("contactId")
	messageID := c.Param("messageId")

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.conversations.EditMessageText(contactID, messageID, req.Text) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *ConversationHandler) GetMood(c *gin.Context) {
	contactID := c.Param("contactId")

	mood, err := h.pipeline.Mood(c.Request.Context(), contactID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mood": mood})
}

package api

import (
	"net/http"

	"phone-sim-demo/backend/lore/models"
	"phone-sim-demo/backend/lore/service"

	"github.com/gin-gonic/gin"
)

type LoreHandler struct {
	service *service.LoreService
}

func NewLoreHandler(service *service.LoreService) *LoreHandler {
	return &LoreHandler{service: service}
}

func (h *LoreHandler) CreateEntry(c *gin.Context) {
	var req models.CreateLoreEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.service.CreateEntry(&req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *LoreHandler) ListEntries(c *gin.Context) {
	entries, err := h.service.ListEntries()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *LoreHandler) DeleteEntry(c *gin.Context) {
	if err := h.service.DeleteEntry(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type AddForbiddenWordRequest struct {
	Word     string `json:"word" binding:"required"`
	Category string `json:"category"`
}

func (h *LoreHandler) AddForbiddenWord(c *gin.Context) {
	var req AddForbiddenWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	word, err := h.service.AddForbiddenWord(req.Word, req.Category)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, word)
}

func (h *LoreHandler) ListForbiddenWords(c *gin.Context) {
	words, err := h.service.ForbiddenWords()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, words)
}

func (h *LoreHandler) DeleteForbiddenWord(c *gin.Context) {
	if err := h.service.DeleteForbiddenWord(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

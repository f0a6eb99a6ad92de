package api

import (
	"net/http"

	"phone-sim-demo/backend/contact/models"
	"phone-sim-demo/backend/contact/service"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	service *service.ContactService
}

func NewContactHandler(service *service.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.service.CreateContact(&req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) GetContact(c *gin.Context) {
	contact, err := h.service.GetContact(c.Param("contactId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) ListContacts(c *gin.Context) {
	contacts, err := h.service.ListContacts()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var contact models.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact.ID = c.Param("contactId")

	if err := h.service.UpdateContact(&contact); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	if err := h.service.DeleteContact(c.Param("contactId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ContactHandler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Profile())
}

func (h *ContactHandler) UpdateProfile(c *gin.Context) {
	var profile models.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.service.SetProfile(profile)
	c.JSON(http.StatusOK, h.service.Profile())
}

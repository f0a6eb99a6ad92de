package api

import (
	"github.com/gin-gonic/gin"
)

func RegisterContactRoutes(r gin.IRouter, handler *ContactHandler) {
	contacts := r.Group("/contacts")
	{
		contacts.POST("", handler.CreateContact)
		contacts.GET("", handler.ListContacts)
		contacts.GET("/:contactId", handler.GetContact)
		contacts.PUT("/:contactId", handler.UpdateContact)
		contacts.DELETE("/:contactId", handler.DeleteContact)
	}

	profile := r.Group("/profile")
	{
		profile.GET("", handler.GetProfile)
		profile.PUT("", handler.UpdateProfile)
	}
}

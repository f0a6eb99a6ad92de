package api

import (
	"phone-sim-demo/backend/internal/ws"

	"github.com/gin-gonic/gin"
)

func RegisterConversationRoutes(r gin.IRouter, handler *ConversationHandler, hub *ws.Hub) {
	contacts := r.Group("/contacts/:contactId")
	{
		contacts.GET("/messages", handler.GetMessages)
		contacts.POST("/messages", handler.SendMessage)
		contacts.DELETE("/messages", handler.DeleteMessages)
		contacts.PATCH("/messages/:messageId", handler.EditMessage)
		contacts.POST("/turns", handler.SubmitTurn)
		contacts.POST("/regenerate", handler.Regenerate)
		contacts.GET("/mood", handler.GetMood)
	}

	r.GET("/ws", hub.ServeWS)
}

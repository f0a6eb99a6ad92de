package api

import (
	"github.com/gin-gonic/gin"
)

func RegisterLoreRoutes(r gin.IRouter, handler *LoreHandler) {
	lore := r.Group("/lore")
	{
		lore.POST("", handler.CreateEntry)
		lore.GET("", handler.ListEntries)
		lore.DELETE("/:id", handler.DeleteEntry)
	}

	words := r.Group("/forbidden-words")
	{
		words.POST("", handler.AddForbiddenWord)
		words.GET("", handler.ListForbiddenWords)
		words.DELETE("/:id", handler.DeleteForbiddenWord)
	}
}

package router

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/adapter/api/handler"
	"marketchat/internal/adapter/api/middleware"
)

// SetupChatRouter registers the synchronous chat facade. Every endpoint
// requires a bearer credential.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	rooms := e.Group("/v1/chat/rooms")
	rooms.Use(authMiddleware.Authenticate)

	rooms.POST("", chatHandler.CreateRoom)
	rooms.GET("", chatHandler.ListRooms)
	rooms.GET("/:id", chatHandler.GetRoom)
	rooms.DELETE("/:id", chatHandler.DeleteRoom)

	rooms.GET("/:id/messages", chatHandler.GetMessages)
	rooms.POST("/:id/messages", chatHandler.SendMessage)
	rooms.POST("/:id/read", chatHandler.MarkAsRead)
}

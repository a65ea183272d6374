package app

import (
	"socialhub_backend/docs"
	"socialhub_backend/internal/config"
	"socialhub_backend/internal/middleware"
	"socialhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(), middleware.ActivityMiddleware(s.user))
	{
		a.registerUserRoutes(authGroup, c)
		a.registerRelationshipRoutes(authGroup, c)
		a.registerChatRoutes(authGroup, c)
		a.registerNotificationRoutes(authGroup, c)
		a.registerCommunityRoutes(authGroup, c)
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/users/me", c.user.Me)
	rg.PUT("/users/me", c.user.UpdateProfile)
	rg.POST("/users/me/avatar", c.user.UploadAvatar)
	rg.GET("/users/search", c.user.Search)
	rg.GET("/users/:id", c.user.GetProfile)
}

func (a *App) registerRelationshipRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/users/:id/follow", c.relationship.Follow)
	rg.DELETE("/users/:id/follow", c.relationship.Unfollow)
	rg.POST("/users/:id/block", c.relationship.Block)
	rg.DELETE("/users/:id/block", c.relationship.Unblock)
	rg.POST("/users/:id/mute", c.relationship.Mute)
	rg.DELETE("/users/:id/mute", c.relationship.Unmute)

	rg.POST("/follow-requests/:id/accept", c.relationship.AcceptRequest)
	rg.POST("/follow-requests/:id/reject", c.relationship.RejectRequest)

	rg.GET("/relationships/followers", c.relationship.Followers)
	rg.GET("/relationships/following", c.relationship.Following)
	rg.GET("/relationships/requests", c.relationship.PendingRequests)
	rg.GET("/relationships/blocked", c.relationship.BlockedUsers)
	rg.GET("/relationships/mutes", c.relationship.Mutes)
}

func (a *App) registerChatRoutes(rg *gin.RouterGroup, c *controllers) {
	chat := rg.Group("/chat")
	{
		chat.GET("/ws", c.chat.HandleWS)

		chat.POST("/direct", c.chat.CreateDirect)
		chat.POST("/groups", c.chat.CreateGroup)
		chat.GET("/conversations", c.chat.ListConversations)
		chat.GET("/conversations/:id", c.chat.GetConversation)
		chat.POST("/conversations/:id/leave", c.chat.LeaveConversation)
		chat.POST("/conversations/:id/invite", c.chat.InviteParticipant)
		chat.POST("/conversations/:id/mute", c.chat.ToggleMute)

		chat.GET("/conversations/:id/messages", c.chat.GetMessages)
		chat.POST("/conversations/:id/messages", c.chat.SendMessage)
		chat.POST("/conversations/:id/read", c.chat.MarkRead)
		chat.GET("/conversations/:id/unread", c.chat.UnreadCount)

		chat.PUT("/messages/:id", c.chat.EditMessage)
		chat.DELETE("/messages/:id", c.chat.DeleteMessage)
	}
}

func (a *App) registerNotificationRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/notifications", c.notification.List)
	rg.DELETE("/notifications", c.notification.ClearAll)
	rg.GET("/notifications/unread-count", c.notification.UnreadCount)
	rg.POST("/notifications/read-all", c.notification.MarkAllRead)
	rg.POST("/notifications/:id/read", c.notification.MarkRead)
	rg.DELETE("/notifications/:id", c.notification.Delete)
}

func (a *App) registerCommunityRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/posts", c.community.CreatePost)
	rg.GET("/posts/:id", c.community.GetPost)
	rg.DELETE("/posts/:id", c.community.DeletePost)
	rg.POST("/posts/:id/comments", c.community.Comment)
	rg.GET("/posts/:id/comments", c.community.ListComments)
	rg.POST("/posts/:id/reactions", c.community.React)
	rg.DELETE("/posts/:id/reactions", c.community.Unreact)
}

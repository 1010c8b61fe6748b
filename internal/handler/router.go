package handler

import (
	"philo-chat-go/internal/middleware"
	"philo-chat-go/internal/service"
	"philo-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// NewRouter 创建 Gin 路由引擎并注册全部路由。searchService 为 nil 时不注册搜索接口。
func NewRouter(sessionService service.SessionService, searchService service.SearchService, jwtManager *token.JWTManager) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	userHandler := NewUserHandler(sessionService, jwtManager)
	chatHandler := NewChatHandler(sessionService, jwtManager)

	r.GET("/healthz", Health)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.SessionMiddleware(jwtManager))
	{
		users := apiV1.Group("/users")
		{
			users.POST("/signup", userHandler.Signup)
			users.POST("/login", userHandler.Login)
			users.POST("/logout", userHandler.Logout)
			users.GET("/me", userHandler.GetProfile)
			users.DELETE("/me", userHandler.DeleteAccount)
			users.PUT("/me/name", userHandler.SetName)
			users.PUT("/me/age", userHandler.SetAge)
			users.POST("/me/picture", userHandler.SetProfilePicture)
		}

		apiV1.GET("/philosophers", NewPhilosopherHandler(sessionService).List)

		chats := apiV1.Group("/chats")
		{
			chats.POST("", chatHandler.NewChat)
			chats.GET("", chatHandler.ListChats)
			chats.POST("/select", chatHandler.SelectChat)
			chats.POST("/exit", chatHandler.ExitChat)
			chats.POST("/complete", chatHandler.Complete)
			chats.DELETE("/:name", chatHandler.DeleteChat)
			chats.GET("/:name/history", chatHandler.ChatHistory)
			if searchService != nil {
				chats.GET("/search", NewSearchHandler(searchService).SearchHistory)
			}
		}
	}

	// Chat 路由 (WebSocket)，token 通过路径传递
	r.GET("/chat/:token", chatHandler.Stream)
	return r
}

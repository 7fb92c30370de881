package router

import (
	"github.com/gin-gonic/gin"

	"sudooom.grimoire/internal/auth"
	"sudooom.grimoire/internal/config"
	"sudooom.grimoire/internal/handler"
	"sudooom.grimoire/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtService *auth.Service,
	authHandler *handler.AuthHandler,
	roomHandler *handler.RoomHandler,
	wsHandler *handler.WSHandler,
) *gin.Engine {
	// 设置 Gin 模式
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	requireToken := middleware.JWTAuth(jwtService)

	// 房间推送
	r.GET("/ws", requireToken, wsHandler.Serve)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 访客身份（无需登录）
		v1.POST("/auth/guest", authHandler.Guest)
		v1.GET("/scripts", roomHandler.ListScripts)

		// 需要认证的接口
		rooms := v1.Group("/rooms")
		rooms.Use(requireToken)
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:code", roomHandler.GetRoom)
			rooms.DELETE("/:code", roomHandler.CloseRoom)
			rooms.POST("/:code/intents", roomHandler.Dispatch)
			rooms.POST("/:code/seats/:seat/claim", roomHandler.ClaimSeat)
			rooms.POST("/:code/seats/:seat/release", roomHandler.ReleaseSeat)
		}
	}

	return r
}

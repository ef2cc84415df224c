package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(loginService *service.LoginService, log *zap.Logger, defaults Defaults) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))
	router.SetHTMLTemplate(pages)

	handlers := NewLoginHandlers(loginService, log, defaults)

	// Demo pages
	router.GET("/", handlers.Index)
	router.POST("/login", handlers.LoginPage)
	router.POST("/confirm", handlers.ConfirmPage)

	// JSON API
	api := router.Group("/api")
	{
		api.POST("/login", handlers.Login)
		api.POST("/confirm", handlers.Confirm)
	}

	// Calls on a caller-held session
	session := api.Group("")
	session.Use(IdentityMiddleware())
	{
		session.GET("/status", handlers.Status)
		session.POST("/ping", handlers.Ping)
		session.GET("/accounts", handlers.Accounts)
		session.GET("/personal-info", handlers.PersonalInfo)
	}

	return router
}

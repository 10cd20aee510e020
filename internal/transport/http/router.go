package httptransport

import (
	"log/slog"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/transport/http/handler"
	"github.com/azamatbayne/user-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type tokenDecoder interface {
	Decode(raw string) (*domain.Principal, error)
}

func NewRouter(logger *slog.Logger, accountHandler *handler.AccountHandler, decoder tokenDecoder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Anonymous lifecycle routes
	r.POST("/register", accountHandler.Register)
	r.POST("/login", accountHandler.Login)
	r.POST("/forget", accountHandler.Forget)
	r.POST("/reset/:token", accountHandler.Reset)

	// Routes requiring a bearer token
	authed := r.Group("", middleware.Auth(decoder))
	authed.POST("/invite", accountHandler.Invite)
	authed.GET("/friends", accountHandler.Friends)
	authed.POST("/profile", accountHandler.Update)
	authed.POST("/profile/:id", accountHandler.Update)

	return r
}

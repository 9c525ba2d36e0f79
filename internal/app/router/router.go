package router

import (
	"github.com/gin-gonic/gin"

	authhandler "auth_backend/internal/feature/auth/transport/handler"
	"auth_backend/internal/platform/http/handler"
	"auth_backend/internal/platform/http/middleware"
	jwtmw "auth_backend/internal/platform/jwt"
	"auth_backend/internal/shared/ratelimiter"
)

// Deps are the components the router mounts.
type Deps struct {
	Auth       *authhandler.AuthHandler
	Resolver   jwtmw.BearerResolver
	Limiter    ratelimiter.Limiter // nil disables rate limiting
	CookieName string
	Checks     map[string]handler.Check
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogging())

	health := handler.Health(d.Checks)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)

	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if d.Limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{ratelimiter.Middleware(d.Limiter), h}
	}

	a := r.Group("/auth")
	// no authentication required
	a.POST("/register", limited(d.Auth.Register)...)
	a.POST("/login", limited(d.Auth.Login)...)
	a.POST("/google", limited(d.Auth.GoogleCredential)...)
	a.GET("/google", d.Auth.GoogleStart)
	a.GET("/google/callback", d.Auth.GoogleCallback)
	a.POST("/logout", d.Auth.Logout)

	// bearer credential required
	authed := a.Group("")
	authed.Use(jwtmw.AuthRequired(d.Resolver, d.CookieName))
	{
		authed.GET("/me", d.Auth.Me)
		authed.POST("/token", d.Auth.Token)
	}

	return r
}

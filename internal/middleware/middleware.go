package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/auth/handler"
	"github.com/watchtower-soc/watchtower/internal/constant"
	"github.com/watchtower-soc/watchtower/internal/repositories/sql/token"
	"github.com/watchtower-soc/watchtower/pkg/infra"
)

var (
	middlewareOnce sync.Once
	middleware     Middleware
)

// Paths served without a bearer token. The SIEM webhook authenticates
// with its own shared key instead.
var bypassPrefixes = []string{
	"/login",
	"/register",
	"/health",
	"/api/v1/watchtower/webhook/siem",
}

type Middleware interface {
	GetMiddleWares() []gin.HandlerFunc
}

type MiddlewareHandler struct {
	tokenRepo token.Repository
}

func NewMiddleware() Middleware {
	middlewareOnce.Do(func() {
		connection, _ := infra.SQL.GetConnection()
		sqlConn := connection.(*infra.SQLConnection)
		tokenRepo, err := token.NewRepository(sqlConn)
		if err != nil {
			log.Error().Msgf("Error in creating token repository: %v", err)
		}

		middleware = &MiddlewareHandler{
			tokenRepo: tokenRepo,
		}
	})
	return middleware
}

func (m *MiddlewareHandler) GetMiddleWares() []gin.HandlerFunc {
	var middlewares []gin.HandlerFunc
	middlewares = append(middlewares, m.Cors()...)
	middlewares = append(middlewares, m.AuthMiddleware())

	return middlewares
}

func (m *MiddlewareHandler) Cors() []gin.HandlerFunc {
	var middlewares []gin.HandlerFunc
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-SIEM-Key"}
	corsConfig.AllowCredentials = true

	middlewares = append(middlewares, cors.New(corsConfig))
	return middlewares
}

// AuthMiddleware checks for a valid JWT token except on bypassed routes
func (m *MiddlewareHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range bypassPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Error().
				Str("reason", "Authorization header required").
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("unauthorized request blocked by auth middleware")
			c.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			log.Error().
				Str("reason", "Authorization token must be Bearer <token>").
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("unauthorized request blocked by auth middleware")
			c.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Authorization token must be Bearer <token>"})
			c.Abort()
			return
		}

		valid, err := m.tokenRepo.IsTokenValid(tokenString)
		if err != nil || !valid {
			log.Error().
				Str("reason", "Invalid token").
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("unauthorized request blocked by auth middleware")
			c.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Invalid token"})
			c.Abort()
			return
		}

		claims := &handler.Claims{}
		parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return handler.JwtKey, nil
		})
		if err != nil || !parsed.Valid {
			log.Error().
				Str("reason", "Invalid or expired token").
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("unauthorized request blocked by auth middleware")
			c.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}

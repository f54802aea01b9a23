package controller

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/auth/handler"
	"github.com/watchtower-soc/watchtower/internal/constant"
)

type Auth interface {
	Register(ctx *gin.Context)
	Login(ctx *gin.Context)
	Logout(ctx *gin.Context)
	GetAllUsers(ctx *gin.Context)
	UpdateUserAccessAndRole(ctx *gin.Context)
}

var (
	auth Auth
	once sync.Once
)

type AuthController struct {
	Authenticator handler.Authenticator
}

func NewController() Auth {
	if auth == nil {
		once.Do(func() {
			auth = &AuthController{
				Authenticator: handler.NewAuthenticator(1),
			}
		})
	}
	return auth
}

func (a *AuthController) Register(ctx *gin.Context) {
	var request handler.User
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	if err := a.Authenticator.Register(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Message: "User Registered Successfully"})
}

func (a *AuthController) Login(ctx *gin.Context) {
	var request handler.Login
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	token, err := a.Authenticator.Login(&request)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, token)
}

func (a *AuthController) Logout(ctx *gin.Context) {
	token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	if err := a.Authenticator.Logout(token); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Message: "User Logged out successfully"})
}

func (a *AuthController) GetAllUsers(ctx *gin.Context) {
	_, role, err := ParseAuthenticationHeader(ctx)
	if err != nil {
		return
	}
	if role != constant.RoleAdmin {
		err = errors.New("not authorized to process request")
		ctx.JSON(http.StatusForbidden, gin.H{constant.Error: err.Error()})
		return
	}
	users, err := a.Authenticator.GetAllUsers()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, users)
}

func (a *AuthController) UpdateUserAccessAndRole(ctx *gin.Context) {
	var request handler.UpdateUserAccessAndRole
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	_, role, err := ParseAuthenticationHeader(ctx)
	if err != nil {
		return
	}
	if role != constant.RoleAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{constant.Error: "not authorized to process request"})
		return
	}
	switch request.Role {
	case constant.RoleViewer, constant.RoleAnalyst, constant.RoleAdmin:
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: "invalid role"})
		return
	}
	if err := a.Authenticator.UpdateUserAccessAndRole(request.Email, request.IsActive, request.Role); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Message: "User info updated successfully"})
}

// ParseAuthenticationHeader extracts and validates the bearer token on the
// request, returning the caller's email and role. On failure the response
// is already written.
func ParseAuthenticationHeader(ctx *gin.Context) (string, string, error) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		log.Error().Msg("Authorization header is missing")
		ctx.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Authorization header required"})
		return "", "", errors.New("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		log.Error().Msg("Invalid Authorization header format")
		ctx.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Authorization token must be in Bearer format"})
		return "", "", errors.New("authorization token must be in Bearer format")
	}

	claims := &handler.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return handler.JwtKey, nil
	})
	if err != nil || !token.Valid {
		log.Error().Err(err).Msg("Invalid or expired token")
		ctx.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Invalid or expired token"})
		return "", "", errors.New("invalid or expired token")
	}

	return claims.Email, claims.Role, nil
}

// BearerToken returns the raw bearer credential on the request, if present.
// Monitor sessions store it for their upstream calls.
func BearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || tokenString == authHeader {
		return "", false
	}
	return tokenString, true
}

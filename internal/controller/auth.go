package controller

import (
	"net/http"
	"time"

	"taskpulse/internal/config"
	"taskpulse/internal/middleware"
	"taskpulse/internal/models"
	"taskpulse/internal/service"

	"github.com/gin-gonic/gin"
)

// Auth exposes registration, login, and logout.
type Auth struct {
	svc *service.Users
}

// NewAuth wires the auth controller.
func NewAuth(svc *service.Users) *Auth {
	return &Auth{svc: svc}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Auth) issueToken(c *gin.Context, u *models.User) (string, bool) {
	cfg := config.Get()
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	token, err := middleware.NewToken(cfg.JWTSecret, u, ttl)
	if err != nil {
		respondErr(c, err)
		return "", false
	}
	// HttpOnly cookie for browser clients; the token also returns in the
	// body for API clients using the Authorization header.
	c.SetCookie("token", token, int(ttl.Seconds()), "/", "", false, true)
	return token, true
}

// Register creates an account and signs the caller in.
func (h *Auth) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	token, ok := h.issueToken(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u.Summary(), "token": token})
}

// Login verifies the credential and issues a token. Failures are always 401
// with a message that never says which part was wrong.
func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	u, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	token, ok := h.issueToken(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Summary(), "token": token})
}

// Logout clears the auth cookie.
func (h *Auth) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

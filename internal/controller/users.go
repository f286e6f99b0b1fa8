package controller

import (
	"net/http"

	"taskpulse/internal/middleware"
	"taskpulse/internal/service"

	"github.com/gin-gonic/gin"
)

// Users exposes the user directory and profile updates.
type Users struct {
	svc *service.Users
}

// NewUsers wires the users controller.
func NewUsers(svc *service.Users) *Users {
	return &Users{svc: svc}
}

// List returns all users' public projections, ordered by name.
func (h *Users) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Me returns the caller's profile.
func (h *Users) Me(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Summary()})
}

type updateProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

// UpdateMe changes the caller's own name, email, or password.
func (h *Users) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.Actor(c).ID, req.Name, req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Summary()})
}

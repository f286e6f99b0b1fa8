package middleware

import (
	"net/http"
	"strings"
	"time"

	"taskpulse/internal/config"
	"taskpulse/internal/models"
	"taskpulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor"

// Claims is the JWT payload: subject is the user id, plus the profile
// fields the audit trail needs without a store round trip.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewToken mints a signed token for the user.
func NewToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  u.Name,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// tokenFrom extracts the JWT from the Authorization header or the token
// cookie (browser clients authenticate with an HttpOnly cookie).
func tokenFrom(c *gin.Context) string {
	const prefix = "Bearer "
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	if tok, err := c.Cookie("token"); err == nil {
		return tok
	}
	return ""
}

// AuthMiddleware rejects unauthenticated requests and attaches the acting
// user to the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		secret := config.GetJWTSecret(ctx)
		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfiguration"})
			c.Abort()
			return
		}
		var claims Claims
		_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil {
			logger.Debug(ctx, "JWT parse failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		c.Set(actorKey, &models.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email})
		c.Next()
	}
}

// Actor returns the authenticated user attached by AuthMiddleware.
func Actor(c *gin.Context) *models.User {
	v, _ := c.Get(actorKey)
	u, _ := v.(*models.User)
	return u
}

// Prints a signed JWT for curl testing. Usage:
//
//	JWT_SECRET=... go run ./scripts/gen-jwt <user-id> <email> <name>
package main

import (
	"fmt"
	"os"
	"time"

	"taskpulse/internal/middleware"
	"taskpulse/internal/models"
)

func main() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}

	u := &models.User{ID: "test-user", Email: "test@example.com", Name: "Test User"}
	if len(os.Args) > 1 {
		u.ID = os.Args[1]
	}
	if len(os.Args) > 2 {
		u.Email = os.Args[2]
	}
	if len(os.Args) > 3 {
		u.Name = os.Args[3]
	}

	signed, err := middleware.NewToken(secret, u, 24*time.Hour)
	if err != nil {
		panic(err)
	}

	fmt.Println(signed)
}

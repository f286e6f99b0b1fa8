// Seed adds demo users and 5,000 tasks. Run from project root: go run ./scripts/seed
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"taskpulse/internal/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	db := database.InitDB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}

	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	userIDs := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		id := uuid.New().String()
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, credential_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, NOW(), NOW()) ON CONFLICT (email) DO NOTHING`,
			id, fmt.Sprintf("Seed User %d", i), fmt.Sprintf("seed%d@example.com", i), string(hash))
		if err != nil {
			fmt.Fprintln(os.Stderr, "User insert failed:", err)
			os.Exit(1)
		}
		userIDs = append(userIDs, id)
	}

	priorities := []string{"Low", "Medium", "High", "Urgent"}
	statuses := []string{"ToDo", "InProgress", "Review", "Completed"}

	const total = 5_000
	const batchSize = 500
	start := time.Now()

	for batch := 0; batch < total/batchSize; batch++ {
		args := make([]interface{}, 0, batchSize*8)
		placeholders := make([]string, 0, batchSize)
		for i := 0; i < batchSize; i++ {
			n := batch*batchSize + i + 1
			p := len(args)
			placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,NOW(),NOW())",
				p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8))
			args = append(args,
				uuid.New().String(),
				fmt.Sprintf("Task %d", n),
				fmt.Sprintf("Description for task %d", n),
				time.Now().Add(time.Duration(n%30)*24*time.Hour),
				priorities[n%len(priorities)],
				statuses[n%len(statuses)],
				userIDs[n%len(userIDs)],
				userIDs[(n+1)%len(userIDs)],
			)
		}
		q := `INSERT INTO tasks (id, title, description, due_date, priority, status, creator_id, assigned_to_id, created_at, updated_at) VALUES ` +
			strings.Join(placeholders, ",")
		_, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\rInserted %d / %d", (batch+1)*batchSize, total)
	}

	fmt.Printf("\nDone: %d tasks in %v\n", total, time.Since(start))
}

func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}

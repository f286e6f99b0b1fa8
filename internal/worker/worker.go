package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"taskpulse/internal/config"
	"taskpulse/internal/database"
	"taskpulse/internal/models"
	"taskpulse/internal/queue"
	"taskpulse/internal/repository"
	"taskpulse/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Run starts the audit consumer: reads audit entries off Kafka and appends
// them to the audit_log table. One consumer per process; scale by running
// more replicas (the consumer group shares partitions).
func Run(ctx context.Context) {
	cfg := config.Get()
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info(ctx, "Audit worker disabled (no Kafka brokers)")
		return
	}
	db := database.DB(ctx)
	if db == nil {
		logger.Error(ctx, "Audit worker disabled (no database)")
		return
	}
	repo := repository.NewAudit(db)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  queue.Brokers(),
		Topic:    queue.Topic(),
		GroupID:  "audit-writers",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var processed int64
	logger.Info(ctx, "Audit consumer started", "topic", queue.Topic())
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Audit fetch failed", "error", err)
			continue
		}
		if err := handleMessage(ctx, repo, msg.Value); err != nil {
			logger.Error(ctx, "Audit handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Audit commit failed", "error", err)
		}
		atomic.AddInt64(&processed, 1)
	}
}

func handleMessage(ctx context.Context, repo *repository.Audit, payload []byte) error {
	var e models.AuditEntry
	if err := json.Unmarshal(payload, &e); err != nil {
		return err
	}
	return repo.Append(ctx, &e)
}

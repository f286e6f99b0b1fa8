package controller

import (
	"context"
	"net/http"

	"taskpulse/internal/models"

	"github.com/gin-gonic/gin"
)

// AuditReader lists recent audit entries. Satisfied by repository.Audit.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Audit exposes the recent audit trail.
type Audit struct {
	reader AuditReader
}

// NewAudit wires the audit controller.
func NewAudit(reader AuditReader) *Audit {
	return &Audit{reader: reader}
}

// List returns the most recent audit entries, newest first.
func (h *Audit) List(c *gin.Context) {
	entries, err := h.reader.ListRecent(c.Request.Context(), 100)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

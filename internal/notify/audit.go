package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/nerrad567/catalog-core/internal/audit"
	"github.com/nerrad567/catalog-core/internal/catalog"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

// auditWriteTimeout bounds the audit insert once the request context is gone.
const auditWriteTimeout = 5 * time.Second

// AuditNotifier records catalog changes in the audit trail.
type AuditNotifier struct {
	repo   audit.Repository
	logger *logging.Logger
}

// NewAuditNotifier creates a notifier writing to repo.
func NewAuditNotifier(repo audit.Repository, logger *logging.Logger) *AuditNotifier {
	return &AuditNotifier{repo: repo, logger: logger}
}

var auditActions = map[catalog.Action]string{
	catalog.ActionCreated: audit.ActionCreate,
	catalog.ActionUpdated: audit.ActionUpdate,
	catalog.ActionDeleted: audit.ActionDelete,
}

// Notify implements catalog.Notifier.
func (a *AuditNotifier) Notify(ctx context.Context, ev catalog.Event) {
	action, ok := auditActions[ev.Action]
	if !ok {
		return
	}

	entry := &audit.Entry{
		Action:     action,
		EntityType: audit.EntityProduct,
		EntityID:   strconv.FormatInt(ev.ProductID, 10),
		Actor:      ev.Actor,
		Source:     audit.SourceAPI,
		CreatedAt:  ev.At,
	}
	if len(ev.Product) > 0 {
		entry.Details = map[string]any(ev.Product)
	}

	// Write even if the client has already gone away.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := a.repo.Create(writeCtx, entry); err != nil {
		a.logger.Warn("writing audit entry failed",
			"action", action,
			"product_id", ev.ProductID,
			"error", err,
		)
	}
}

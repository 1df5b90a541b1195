package webhook

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/chatforge/chatforge/core/logger"
	"github.com/chatforge/chatforge/navigation"
)

// Delegator hands delegated button actions (forms, outbound integrations)
// off to their external collaborator. The handoff is asynchronous and never
// blocks click handling.
type Delegator interface {
	Delegate(ctx context.Context, collab navigation.Collaborator, tenantID, userID int64, payload json.RawMessage)
}

// LogDelegator records delegations without executing them. It is the default
// until a real form/integration collaborator is attached.
type LogDelegator struct{}

// Delegate implements Delegator.
func (LogDelegator) Delegate(ctx context.Context, collab navigation.Collaborator, tenantID, userID int64, payload json.RawMessage) {
	logger.Info(ctx, "webhook", "delegate.drop",
		slog.String("op", string(collab)),
		slog.Int64("tenant_id", tenantID),
		slog.Int64("user_id", userID),
		slog.Int("payload", len(payload)),
	)
}

// Package notify implements the toast-equivalent outcome channel for a
// headless runtime: outcomes are emitted as structured log events so an
// embedding UI (or an operator tail) can surface them.
package notify

import (
	"context"

	"github.com/aduboahen/juicekart/pkg/logger"
)

// LogNotifier writes outcome notifications through the structured logger.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier builds the notifier.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logg}
}

// Success reports a user-visible success.
func (n *LogNotifier) Success(ctx context.Context, msg string) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Info(n.logger.WithField(ctx, "notice", "success"), msg)
}

// Failure reports a user-visible failure.
func (n *LogNotifier) Failure(ctx context.Context, msg string) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Warn(n.logger.WithField(ctx, "notice", "failure"), msg)
}

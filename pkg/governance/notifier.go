package governance

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// Notifier posts governance events to a Slack channel. With no bot token
// configured it is a logging-only noop, so governance works without chat
// integration wired up.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier constructs a Notifier. If botToken is empty the notifier is
// disabled.
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the notifier has a usable Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// NotifyArbitrationRequested posts an ARBITRATION_REQUESTED summary.
func (n *Notifier) NotifyArbitrationRequested(ctx context.Context, req ArbitrationRequest) {
	if !n.IsEnabled() {
		n.logger.Debug("governance notifier disabled, skipping arbitration post", "intent_id", req.IntentID)
		return
	}
	text := fmt.Sprintf(":grey_question: Arbitration requested on `%s` by %s: %s", req.IntentID, req.RequestedBy, req.Reason)
	if _, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false)); err != nil {
		n.logger.Error("posting arbitration notification", "error", err)
	}
}

// NotifyDecisionRecorded posts a DECISION_RECORDED summary.
func (n *Notifier) NotifyDecisionRecorded(ctx context.Context, d Decision) {
	if !n.IsEnabled() {
		n.logger.Debug("governance notifier disabled, skipping decision post", "intent_id", d.IntentID)
		return
	}
	text := fmt.Sprintf(":white_check_mark: Decision recorded on `%s` by %s: %s", d.IntentID, d.DecidedBy, d.Decision)
	if _, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false)); err != nil {
		n.logger.Error("posting decision notification", "error", err)
	}
}

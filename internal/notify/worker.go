package notify

import (
	"context"
	"encoding/json"

	"github.com/tazhibayda/event-service/internal/helper"
	"github.com/tazhibayda/event-service/internal/mail"
	"github.com/tazhibayda/event-service/internal/queue"
	"go.uber.org/zap"
)

// MailHandler decodes queued mail requests and delivers them. Undecodable
// messages are dropped so they cannot block the queue; delivery errors requeue.
func MailHandler(m mail.Sender, l *zap.Logger) func(context.Context, []byte) error {
	if l == nil {
		l = zap.NewNop()
	}
	return func(ctx context.Context, body []byte) error {
		var req queue.MailRequested
		if err := json.Unmarshal(body, &req); err != nil || req.To == "" {
			l.Warn("drop malformed mail request", zap.Int("bytes", len(body)), zap.Error(err))
			return nil
		}
		err := m.Deliver(ctx, mail.Message{FromName: req.FromName, To: req.To, Subject: req.Subject, HTML: req.HTML})
		record(l, "worker", req.To, req.Subject, err)
		if err == nil {
			l.Info("mail delivered", zap.String("to_hash", helper.Hash8(req.To)), zap.String("subject", req.Subject))
		}
		return err
	}
}

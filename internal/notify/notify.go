// Package notify sends user notifications without ever failing the caller.
package notify

import (
	"context"

	"github.com/tazhibayda/event-service/internal/helper"
	"github.com/tazhibayda/event-service/internal/mail"
	"github.com/tazhibayda/event-service/internal/metrics"
	"github.com/tazhibayda/event-service/internal/queue"
	"go.uber.org/zap"
)

// Sender is fire-and-forget: failures are logged, never returned.
type Sender interface {
	Send(ctx context.Context, fromName, to, subject, html string)
}

// Direct delivers inline through a mail.Sender.
type Direct struct {
	Mail mail.Sender
	Log  *zap.Logger
}

func (d *Direct) Send(ctx context.Context, fromName, to, subject, html string) {
	err := d.Mail.Deliver(ctx, mail.Message{FromName: fromName, To: to, Subject: subject, HTML: html})
	record(d.Log, "direct", to, subject, err)
}

// Queued hands the message to the notify worker over RabbitMQ.
type Queued struct {
	Pub      queue.Publisher
	Exchange string
	Log      *zap.Logger
}

func (q *Queued) Send(ctx context.Context, fromName, to, subject, html string) {
	err := q.Pub.Publish(ctx, q.Exchange, queue.KeyMailSend,
		queue.MailRequested{FromName: fromName, To: to, Subject: subject, HTML: html},
		helper.RequestID(ctx))
	record(q.Log, "queue", to, subject, err)
}

// New picks the sender for transport. "queue" without a live broker falls back to
// direct delivery.
func New(transport string, pub queue.Publisher, exchange string, direct mail.Sender, l *zap.Logger) Sender {
	if l == nil {
		l = zap.NewNop()
	}
	switch transport {
	case "queue":
		if _, noop := pub.(queue.NoopPub); pub == nil || noop {
			l.Warn("queue mail transport has no broker, delivering directly")
			return &Direct{Mail: direct, Log: l}
		}
		return &Queued{Pub: pub, Exchange: exchange, Log: l}
	case "log":
		return &Direct{Mail: &mail.LogSender{Log: l}, Log: l}
	default:
		return &Direct{Mail: direct, Log: l}
	}
}

func record(l *zap.Logger, transport, to, subject string, err error) {
	if l == nil {
		l = zap.NewNop()
	}
	if err != nil {
		metrics.MailSent.WithLabelValues(transport, "error").Inc()
		l.Error("mail send failed",
			zap.String("transport", transport),
			zap.String("to_hash", helper.Hash8(to)),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	metrics.MailSent.WithLabelValues(transport, "ok").Inc()
}

package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type Option func(*lifecycle)

func WithClock(now func() time.Time) Option {
	return func(l *lifecycle) { l.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *lifecycle) { l.logger = logger }
}

func WithMetrics(m ports.LifecycleMetrics) Option {
	return func(l *lifecycle) { l.metrics = m }
}

// lifecycle carries what the account and restoration services share.
type lifecycle struct {
	notifier ports.Notifier
	now      func() time.Time
	logger   *zap.Logger
	metrics  ports.LifecycleMetrics
}

func newLifecycle(notifier ports.Notifier, opts []Option) lifecycle {
	l := lifecycle{
		notifier: notifier,
		now:      time.Now,
		logger:   zap.NewNop(),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func (l *lifecycle) clock() time.Time {
	return l.now().UTC()
}

// notify is fire-and-forget: a committed transition stays committed whatever the mailer does.
func (l *lifecycle) notify(ctx context.Context, tmpl ports.EmailTemplate, to ports.Recipient, params map[string]any) {
	if to.Email == "" {
		l.logger.Warn("skipping notification without recipient", zap.String("template", string(tmpl)))
		return
	}
	if err := l.notifier.Send(ctx, tmpl, to, params); err != nil {
		l.metrics.NotificationFailed(tmpl)
		l.logger.Warn("failed to send notification",
			zap.String("template", string(tmpl)),
			zap.String("recipient", to.Email),
			zap.Error(err),
		)
	}
}

type nopMetrics struct{}

func (nopMetrics) TransitionRecorded(string)              {}
func (nopMetrics) NotificationFailed(ports.EmailTemplate) {}

package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

// LogMailer renders emails and writes them to the log instead of sending them.
// Used when no SendGrid key is configured.
type LogMailer struct {
	renderer *Renderer
	logger   *zap.Logger
}

func NewLogMailer(renderer *Renderer, logger *zap.Logger) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, tmpl ports.EmailTemplate, to ports.Recipient, params map[string]any) error {
	msg, err := m.renderer.Render(tmpl, params)
	if err != nil {
		return err
	}
	m.logger.Info("email",
		zap.String("template", string(tmpl)),
		zap.String("recipient", to.Email),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

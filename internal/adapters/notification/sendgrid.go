package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Sandbox   bool
}

type SendGridMailer struct {
	client   sender
	renderer *Renderer
	from     *mail.Email
	sandbox  bool
	logger   *zap.Logger
}

func NewSendGridMailer(cfg SendGridConfig, renderer *Renderer, logger *zap.Logger) *SendGridMailer {
	return newSendGridMailer(sendgrid.NewSendClient(cfg.APIKey), cfg, renderer, logger)
}

func newSendGridMailer(client sender, cfg SendGridConfig, renderer *Renderer, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:   client,
		renderer: renderer,
		from:     mail.NewEmail(cfg.FromName, cfg.FromEmail),
		sandbox:  cfg.Sandbox,
		logger:   logger,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, tmpl ports.EmailTemplate, to ports.Recipient, params map[string]any) error {
	msg, err := m.renderer.Render(tmpl, params)
	if err != nil {
		return err
	}

	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail(to.Name, to.Email), msg.Text, msg.HTML)
	if m.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		email.MailSettings = ms
	}

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.Debug("email sent",
		zap.String("template", string(tmpl)),
		zap.String("recipient", to.Email),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

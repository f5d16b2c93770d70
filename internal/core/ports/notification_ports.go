package ports

import "context"

type EmailTemplate string

const (
	TemplateAccountDeleted       EmailTemplate = "account_deleted"
	TemplateRestorationRequested EmailTemplate = "restoration_requested"
	TemplateRestorationApproved  EmailTemplate = "restoration_approved"
	TemplateRestorationRejected  EmailTemplate = "restoration_rejected"
	TemplateAppealSubmitted      EmailTemplate = "appeal_submitted"
)

type Recipient struct {
	Email string
	Name  string
}

// Notifier delivers a templated email. Params is the template's data bag.
type Notifier interface {
	Send(ctx context.Context, tmpl EmailTemplate, to Recipient, params map[string]any) error
}

type LifecycleMetrics interface {
	TransitionRecorded(to string)
	NotificationFailed(tmpl EmailTemplate)
}

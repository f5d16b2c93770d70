package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

//go:embed templates/*.txt templates/*.html
var templateFS embed.FS

var subjects = map[ports.EmailTemplate]string{
	ports.TemplateAccountDeleted:       "Your GrantDesk account was deleted",
	ports.TemplateRestorationRequested: "Account restoration requested",
	ports.TemplateRestorationApproved:  "Your GrantDesk account has been restored",
	ports.TemplateRestorationRejected:  "Update on your account restoration request",
	ports.TemplateAppealSubmitted:      "Restoration appeal submitted",
}

var funcs = map[string]any{
	"date":     func(t time.Time) string { return t.Format("January 2, 2006") },
	"datetime": func(t time.Time) string { return t.UTC().Format("January 2, 2006 15:04 MST") },
}

// Message is a rendered email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type Renderer struct {
	text map[ports.EmailTemplate]*texttemplate.Template
	html map[ports.EmailTemplate]*htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		text: make(map[ports.EmailTemplate]*texttemplate.Template, len(subjects)),
		html: make(map[ports.EmailTemplate]*htmltemplate.Template, len(subjects)),
	}
	for name := range subjects {
		t, err := texttemplate.New(string(name)+".txt").Funcs(funcs).ParseFS(templateFS, "templates/"+string(name)+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}
		h, err := htmltemplate.New(string(name)+".html").Funcs(funcs).ParseFS(templateFS, "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse html template %s: %w", name, err)
		}
		r.text[name] = t
		r.html[name] = h
	}
	return r, nil
}

func (r *Renderer) Render(tmpl ports.EmailTemplate, params map[string]any) (*Message, error) {
	t, ok := r.text[tmpl]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", tmpl)
	}

	var text, html bytes.Buffer
	if err := t.Execute(&text, params); err != nil {
		return nil, fmt.Errorf("failed to render %s text: %w", tmpl, err)
	}
	if err := r.html[tmpl].Execute(&html, params); err != nil {
		return nil, fmt.Errorf("failed to render %s html: %w", tmpl, err)
	}

	return &Message{Subject: subjects[tmpl], Text: text.String(), HTML: html.String()}, nil
}

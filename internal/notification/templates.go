package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// TemplateData feeds the message templates.
type TemplateData struct {
	Name    string
	Code    string
	Reason  string
	Kind    string
	Outcome string
	Link    string
}

type messageTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[TemplateKind]messageTemplate{
	TemplateVerificationCode: {
		subject: "Your verification code",
		body: mustParse("verification_code", `
<p>Hello {{.Name}},</p>
<p>Your verification code is <strong>{{.Code}}</strong>. It expires in 10 minutes.</p>
<p>If you did not request this, you can ignore this message.</p>`),
	},
	TemplateWelcome: {
		subject: "Welcome to the marketplace",
		body: mustParse("welcome", `
<p>Hello {{.Name}},</p>
<p>Your email address is confirmed and your account has been created.</p>`),
	},
	TemplateAccountActivated: {
		subject: "Your account is active",
		body: mustParse("account_activated", `
<p>Hello {{.Name}},</p>
<p>All required documents have been approved. Your account is now active and you can start trading.</p>`),
	},
	TemplateAccountSuspended: {
		subject: "Your account has been suspended",
		body: mustParse("account_suspended", `
<p>Hello {{.Name}},</p>
<p>Your account has been suspended for the following reason:</p>
<p><em>{{.Reason}}</em></p>
<p>Please contact support to resolve this.</p>`),
	},
	TemplateDocumentDecision: {
		subject: "Document review update",
		body: mustParse("document_decision", `
<p>Hello {{.Name}},</p>
<p>Your document <strong>{{.Kind}}</strong> has been {{.Outcome}}.</p>
{{if .Reason}}<p>Reviewer comment: <em>{{.Reason}}</em></p>{{end}}`),
	},
	TemplatePasswordReset: {
		subject: "Password reset request",
		body: mustParse("password_reset", `
<p>Hello {{.Name}},</p>
<p>Use the link below to reset your password. It expires in one hour.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request this, you can ignore this message.</p>`),
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

// Render produces the stored subject and HTML body for a template kind. The
// rendered content is persisted with the record so retries never re-render
// against changed templates.
func Render(kind TemplateKind, data TemplateData) (subject, body string, err error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown template kind %q", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render template %q: %w", kind, err)
	}
	return tmpl.subject, buf.String(), nil
}

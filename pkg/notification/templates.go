package notification

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
)

const PasswordResetPinNotice NoticeType = "password_reset_pin"

// PasswordResetPinTemplate expects Pin and ValidFor in NotificationData.Data.
var PasswordResetPinTemplate = NoticeTemplate{
	Subject: "Password Reset PIN",
	Text:    "Your password reset PIN is: {{.Pin}}\n\nThis PIN is valid for {{.ValidFor}} only.",
	Html:    `<p>Your password reset PIN is: <strong>{{.Pin}}</strong></p><p>This PIN is valid for {{.ValidFor}} only.</p>`,
}

// DefaultTemplates maps every notice the service sends to its template.
func DefaultTemplates() map[NoticeType]NoticeTemplate {
	return map[NoticeType]NoticeTemplate{
		PasswordResetPinNotice: PasswordResetPinTemplate,
	}
}

// RenderedNotice is a template executed against one NotificationData.
type RenderedNotice struct {
	Subject string
	Text    string
	Html    string
}

// Render executes the text and HTML parts of tmpl with data.
func Render(tmpl NoticeTemplate, data map[string]string) (RenderedNotice, error) {
	out := RenderedNotice{Subject: tmpl.Subject}

	if tmpl.Text != "" {
		t, err := template.New("text").Option("missingkey=error").Parse(tmpl.Text)
		if err != nil {
			return RenderedNotice{}, err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return RenderedNotice{}, err
		}
		out.Text = buf.String()
	}

	if tmpl.Html != "" {
		t, err := htmltemplate.New("html").Option("missingkey=error").Parse(tmpl.Html)
		if err != nil {
			return RenderedNotice{}, err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return RenderedNotice{}, err
		}
		out.Html = buf.String()
	}

	return out, nil
}

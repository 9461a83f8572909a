package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const passwordResetSubject = "Password Reset"

var (
	passwordResetHTML = htmltemplate.Must(htmltemplate.New("password-reset.html").Parse(
		`<p>Hello{{if .Name}} {{.Name}}{{end}},</p>
<p>You have requested a password reset. Please click the following button to continue
on with resetting your password. This link is valid for 1 hour.</p>
<p><a href="{{.ResetURL}}">Reset my password</a></p>
<p>If you can't click the button please visit <a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>If you didn't request this email, please ignore it.</p>`))

	passwordResetText = texttemplate.Must(texttemplate.New("password-reset.txt").Parse(
		`Hello{{if .Name}} {{.Name}}{{end}},

You have requested a password reset. Visit the link below to reset your password.
This link is valid for 1 hour.

{{.ResetURL}}

If you didn't request this email, please ignore it.
`))
)

type passwordResetData struct {
	Name     string
	ResetURL string
}

// PasswordReset builds the reset email for to, embedding resetURL.
func PasswordReset(to, name, resetURL string) (Message, error) {
	data := passwordResetData{Name: name, ResetURL: resetURL}

	var html, text bytes.Buffer
	if err := passwordResetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render reset html: %w", err)
	}
	if err := passwordResetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render reset text: %w", err)
	}

	return Message{
		To:      to,
		Subject: passwordResetSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

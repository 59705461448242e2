package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var (
	verifyTmpl = template.Must(template.New("verify").Parse(
		`<p>Hi {{.Name}},</p>
<p>Please confirm your email address for {{.AppName}}.</p>
<p><a href="{{.URL}}">Verify email</a></p>`))

	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>Hi {{.Name}},</p>
<p>We received a request to reset your {{.AppName}} password. The link expires in {{.ExpiresIn}}.</p>
<p><a href="{{.URL}}">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>`))

	inviteTmpl = template.Must(template.New("invite").Parse(
		`<p>{{.InviterName}} invited you to join <strong>{{.WorkspaceName}}</strong> on {{.AppName}}.</p>
<p><a href="{{.URL}}">Accept invitation</a></p>
<p>This invitation expires in {{.ExpiresIn}}.</p>`))
)

// VerifyEmailData 邮箱验证邮件参数.
type VerifyEmailData struct {
	AppName string
	Name    string
	URL     string
}

// ResetPasswordData 重置密码邮件参数.
type ResetPasswordData struct {
	AppName   string
	Name      string
	URL       string
	ExpiresIn string
}

// InviteData 邀请邮件参数.
type InviteData struct {
	AppName       string
	InviterName   string
	WorkspaceName string
	URL           string
	ExpiresIn     string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}

	return buf.String(), nil
}

// RenderVerifyEmail 渲染邮箱验证邮件，返回主题与正文.
func RenderVerifyEmail(d VerifyEmailData) (string, string, error) {
	body, err := render(verifyTmpl, d)

	return "Verify your email", body, err
}

// RenderResetPassword 渲染重置密码邮件.
func RenderResetPassword(d ResetPasswordData) (string, string, error) {
	body, err := render(resetTmpl, d)

	return "Reset your password", body, err
}

// RenderInvite 渲染邀请邮件.
func RenderInvite(d InviteData) (string, string, error) {
	body, err := render(inviteTmpl, d)

	return fmt.Sprintf("%s invited you to %s", d.InviterName, d.WorkspaceName), body, err
}

// Package mailer 发送事务邮件（邮箱验证、重置密码、工作区邀请）.
// driver=smtp 通过 go-mail 发送，driver=log 只记录日志，供开发与测试使用.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/yeisme/teamvault/pkg/configs"
	nlog "github.com/yeisme/teamvault/pkg/log"
)

// Sender 邮件发送接口.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New 按配置创建发送器.
func New(cfg configs.EmailConfig) (Sender, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "log":
		return &LogSender{}, nil
	case "smtp":
		return NewSMTPSender(cfg)
	default:
		return nil, fmt.Errorf("unsupported email driver: %s", cfg.Driver)
	}
}

// SMTPSender 基于 go-mail 的 SMTP 发送器.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender 创建 SMTP 客户端，连接在每次发送时建立.
func NewSMTPSender(cfg configs.EmailConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(time.Duration(cfg.Timeout) * time.Second),
	}

	if cfg.TLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

// Send 发送 HTML 邮件.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	return nil
}

// LogSender 只记录日志并保留最近发送的邮件.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

// Message 已发送的邮件.
type Message struct {
	To      string
	Subject string
	HTML    string
}

func (l *LogSender) Send(ctx context.Context, to, subject, html string) error {
	l.mu.Lock()
	l.sent = append(l.sent, Message{To: to, Subject: subject, HTML: html})
	l.mu.Unlock()

	nlog.Ctx(ctx).Info().Str("to", to).Str("subject", subject).Msg("email (log driver)")

	return nil
}

// Sent 返回已发送邮件的副本.
func (l *LogSender) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Message(nil), l.sent...)
}

// SendAsync 后台发送，失败只记录日志.
func SendAsync(ctx context.Context, s Sender, to, subject, html string) {
	if s == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		if err := s.Send(sendCtx, to, subject, html); err != nil {
			nlog.Ctx(ctx).Error().Err(err).Str("to", to).Str("subject", subject).Msg("send email failed")
		}
	}()
}

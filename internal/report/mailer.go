package report

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// MailConfig holds SMTP delivery settings for the summary mail.
type MailConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Host     string   `mapstructure:"host" yaml:"host"`
	Port     int      `mapstructure:"port" yaml:"port"`
	Username string   `mapstructure:"username" yaml:"username"`
	Password string   `mapstructure:"password" yaml:"password"`
	From     string   `mapstructure:"from" yaml:"from"`
	To       []string `mapstructure:"to" yaml:"to"`
}

// Mailer delivers the rendered summary over SMTP. Delivery failure is logged
// and swallowed: the run's database work is already committed and a lost
// mail must not turn a finished run into a failed one.
type Mailer struct {
	cfg    MailConfig
	logger *zap.Logger
}

// NewMailer constructs a Mailer.
func NewMailer(cfg MailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// Send renders and delivers the summary mail. Returns nil when mail is
// disabled.
func (m *Mailer) Send(ctx context.Context, r Report) error {
	if !m.cfg.Enabled {
		return nil
	}
	body, err := Render(r)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set mail sender: %w", err)
	}
	if err := msg.To(m.cfg.To...); err != nil {
		return fmt.Errorf("set mail recipients: %w", err)
	}
	msg.Subject(Subject(r))
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send summary mail: %w", err)
	}
	m.logger.Info("summary mail sent",
		zap.String("run_id", r.RunID),
		zap.Strings("to", m.cfg.To),
	)
	return nil
}

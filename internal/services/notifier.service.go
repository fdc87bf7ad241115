package services

import (
	"context"
	"fmt"
	"strings"

	"pooltrack/config"
	. "pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/wneessen/go-mail"
)

// Notifier delivers operational alerts. Delivery failures are logged by
// callers and never abort the operation that raised the alert.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, subject, body string) error
}

// MailNotifier sends alerts over SMTP to the configured recipient list.
type MailNotifier struct {
	config     config.Config
	log        logger.Logger
	recipients []string
}

func NewMailNotifier(config config.Config) *MailNotifier {
	log := logger.New("MailNotifier")

	var recipients []string
	for _, addr := range strings.Split(config.AlertEmails, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}

	if config.SmtpHost == "" || len(recipients) == 0 {
		log.Info("mail notifier not configured, alerts disabled")
	} else {
		log.Info("mail notifier configured", "host", config.SmtpHost, "recipients", len(recipients))
	}

	return &MailNotifier{
		config:     config,
		log:        log,
		recipients: recipients,
	}
}

func (n *MailNotifier) Enabled() bool {
	return n.config.SmtpHost != "" && len(n.recipients) > 0
}

func (n *MailNotifier) Notify(ctx context.Context, subject, body string) error {
	log := n.log.Function("Notify")

	if !n.Enabled() {
		return fmt.Errorf("%w: mail notifier not configured", ErrExternalService)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.config.SmtpFrom); err != nil {
		return log.Err("invalid sender address", err, "from", n.config.SmtpFrom)
	}
	if err := msg.To(n.recipients...); err != nil {
		return log.Err("invalid recipient address", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	options := []mail.Option{
		mail.WithPort(n.config.SmtpPort),
	}
	if n.config.SmtpUser != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.config.SmtpUser),
			mail.WithPassword(n.config.SmtpPassword),
		)
	}

	client, err := mail.NewClient(n.config.SmtpHost, options...)
	if err != nil {
		return log.Err("failed to create mail client", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: mail delivery failed: %v", ErrExternalService, err)
	}

	log.Info("alert sent", "subject", subject, "recipients", len(n.recipients))
	return nil
}

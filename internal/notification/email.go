package notification

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"text/template"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smukkama/wind-alert-bot/internal/protocol"
	"github.com/smukkama/wind-alert-bot/pkg/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails alert digests to the administrator
type EmailNotifier struct {
	config   *config.SMTPConfig
	logger   *slog.Logger
	clock    clockwork.Clock
	sendMail sendMailFunc
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		config:   cfg,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		sendMail: smtp.SendMail,
	}
}

type digestView struct {
	Delivered []*protocol.AlertEvent
	Failed    []*protocol.AlertEvent
	MaxKnots  float64
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"kn":    func(v float64) string { return fmt.Sprintf("%.1f kn", v) },
	"deref": func(v *float64) float64 { return *v },
	"when":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
}).Parse(`
Wind Alert Digest
=================

Delivered: {{len .Delivered}}
Failed:    {{len .Failed}}
Peak wind: {{kn .MaxKnots}}
{{if .Delivered}}
Delivered alerts
----------------
{{range .Delivered}}- chat {{.RecipientID}} ({{.Locale}}): {{kn .WindKnots}}{{if .GustKnots}}, gusts {{kn (deref .GustKnots)}}{{end}}, threshold {{kn .ThresholdKnots}}, sent {{when .SentAt}}
{{end}}{{end}}{{if .Failed}}
Failed alerts
-------------
{{range .Failed}}- chat {{.RecipientID}}: {{.Error}} ({{when .SentAt}})
{{end}}{{end}}
---
Wind Alert Bot Notification System
`))

// SendDigest renders and mails one batch of alert events
func (e *EmailNotifier) SendDigest(ctx context.Context, events []*protocol.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}

	view := digestView{}
	for _, ev := range events {
		if ev.Type == protocol.AlertTypeFailed {
			view.Failed = append(view.Failed, ev)
		} else {
			view.Delivered = append(view.Delivered, ev)
		}
		if ev.WindKnots > view.MaxKnots {
			view.MaxKnots = ev.WindKnots
		}
	}

	subject := fmt.Sprintf("🌬️ Wind alerts: %d delivered, %d failed", len(view.Delivered), len(view.Failed))

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sendEmail(subject, buf.String())
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		e.logger.Info("SMTP not configured, skipping email", "subject", subject, "body", body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", e.clock.Now().Format(time.RFC1123Z))
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := e.sendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Info("email sent", "subject", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	return nil
}

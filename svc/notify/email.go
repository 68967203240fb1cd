package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/dmitrymomot/hostelkit/pkg/email"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

// Directory resolves a user's email address. Identity lives outside billing.
type Directory interface {
	Email(ctx context.Context, userID string) (string, error)
}

// DirectoryFunc adapts a function to Directory.
type DirectoryFunc func(ctx context.Context, userID string) (string, error)

func (f DirectoryFunc) Email(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// EmailPublisher mails the events a user must see even when offline: trial
// reminders, trial expiry and failed payments. Other events are ignored.
type EmailPublisher struct {
	sender email.Sender
	dir    Directory
	log    *slog.Logger
}

// NewEmailPublisher creates an EmailPublisher.
func NewEmailPublisher(sender email.Sender, dir Directory, log *slog.Logger) *EmailPublisher {
	return &EmailPublisher{sender: sender, dir: dir, log: log}
}

var emailTemplates = template.Must(template.New("").Parse(`
{{define "TRIAL_EXPIRING"}}<p>Your free trial ends in {{.DaysRemaining}} day(s). Choose a plan to keep managing your beds without interruption.</p>{{end}}
{{define "TRIAL_EXPIRED"}}<p>Your free trial has ended.{{if .FallbackPlanName}} Your account has moved to the {{.FallbackPlanName}} plan.{{end}} Upgrade any time to restore full access.</p>{{end}}
{{define "payment_failed"}}<p>We could not process payment {{.PaymentID}}: {{.Error}}. Please retry from the billing page.</p>{{end}}
`))

var emailSubjects = map[Type]string{
	TypeTrialExpiring: "Your trial is ending soon",
	TypeTrialExpired:  "Your trial has ended",
	TypePaymentFailed: "Payment failed",
}

func (p *EmailPublisher) Publish(ctx context.Context, e Event) error {
	subject, ok := emailSubjects[e.Type]
	if !ok {
		return nil
	}

	data, err := decodeAny(e)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, string(e.Type), data); err != nil {
		return fmt.Errorf("notify: render %s email: %w", e.Type, err)
	}

	to, err := p.dir.Email(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("notify: resolve email: %w", err)
	}

	if err := p.sender.Send(ctx, email.Message{
		To:       to,
		Subject:  subject,
		HTMLBody: body.String(),
		Tag:      string(e.Type),
	}); err != nil {
		return err
	}
	p.log.InfoContext(ctx, "notification email sent", logger.UserID(e.UserID), logger.Event(string(e.Type)))
	return nil
}

func decodeAny(e Event) (any, error) {
	switch e.Type {
	case TypeTrialExpiring:
		return Decode[TrialExpiring](e)
	case TypeTrialExpired:
		return Decode[TrialExpired](e)
	case TypePaymentFailed:
		return Decode[PaymentFailed](e)
	}
	return nil, fmt.Errorf("%w: %s", ErrPayloadMismatch, e.Type)
}

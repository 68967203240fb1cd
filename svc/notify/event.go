package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// Type names an event on the per-user channel.
type Type string

const (
	TypeSubscriptionUpdated Type = "SUBSCRIPTION_UPDATED"
	TypeSubscriptionExpired Type = "SUBSCRIPTION_EXPIRED"
	TypeTrialExpiring       Type = "TRIAL_EXPIRING"
	TypeTrialExpired        Type = "TRIAL_EXPIRED"
	TypeUsageLimitWarning   Type = "USAGE_LIMIT_WARNING"
	TypePaymentSuccess      Type = "payment_success"
	TypePaymentFailed       Type = "payment_failed"
)

// ErrPayloadMismatch is returned by Decode when the event carries another type.
var ErrPayloadMismatch = errors.New("notify: payload type mismatch")

// Payload is implemented by every typed event body.
type Payload interface {
	EventType() Type
}

// Event is what subscribers receive. Payload holds the JSON of the typed body.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	UserID    string          `json:"userId"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// New builds an event for userID.
func New(userID string, p Payload) (Event, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("notify: encode %s: %w", p.EventType(), err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      p.EventType(),
		UserID:    userID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload of e into P.
func Decode[P Payload](e Event) (P, error) {
	var p P
	if e.Type != p.EventType() {
		return p, fmt.Errorf("%w: have %s, want %s", ErrPayloadMismatch, e.Type, p.EventType())
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

type SubscriptionUpdated struct {
	SubscriptionID string `json:"subscriptionId"`
	PlanID         string `json:"planId"`
	PlanName       string `json:"planName"`
	Status         string `json:"status"`
	EndDate        string `json:"endDate"`
}

func (SubscriptionUpdated) EventType() Type { return TypeSubscriptionUpdated }

type SubscriptionExpired struct {
	SubscriptionID string `json:"subscriptionId"`
	PlanName       string `json:"planName"`
}

func (SubscriptionExpired) EventType() Type { return TypeSubscriptionExpired }

type TrialExpiring struct {
	SubscriptionID string `json:"subscriptionId"`
	DaysRemaining  int    `json:"daysRemaining"`
}

func (TrialExpiring) EventType() Type { return TypeTrialExpiring }

type TrialExpired struct {
	SubscriptionID   string `json:"subscriptionId"`
	FallbackPlanName string `json:"fallbackPlanName,omitempty"`
}

func (TrialExpired) EventType() Type { return TypeTrialExpired }

type UsageLimitWarning struct {
	LimitType    string `json:"limitType"`
	CurrentUsage int    `json:"currentUsage"`
	Limit        int    `json:"limit"`
}

func (UsageLimitWarning) EventType() Type { return TypeUsageLimitWarning }

type PaymentSuccess struct {
	PaymentID string        `json:"paymentId"`
	Amount    billing.Money `json:"amount"`
	PlanName  string        `json:"planName"`
}

func (PaymentSuccess) EventType() Type { return TypePaymentSuccess }

type PaymentFailed struct {
	PaymentID string `json:"paymentId"`
	Error     string `json:"error"`
}

func (PaymentFailed) EventType() Type { return TypePaymentFailed }

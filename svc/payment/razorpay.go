package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dmitrymomot/hostelkit/pkg/webhook"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// RazorpaySignatureHeader carries the hex HMAC-SHA256 of the body.
const RazorpaySignatureHeader = "X-Razorpay-Signature"

// RazorpayEventIDHeader identifies a delivery; retries repeat it.
const RazorpayEventIDHeader = "X-Razorpay-Event-Id"

// Razorpay handles Razorpay webhooks.
type Razorpay struct {
	secret string
}

// NewRazorpay creates the gateway with its webhook secret.
func NewRazorpay(secret string) *Razorpay {
	return &Razorpay{secret: secret}
}

func (g *Razorpay) Name() string { return "razorpay" }

// Verify checks the signature over the raw body.
func (g *Razorpay) Verify(raw []byte, header http.Header) error {
	if err := webhook.Verify(g.secret, raw, header.Get(RazorpaySignatureHeader)); err != nil {
		return ErrInvalidSignature.Wrap(err)
	}
	return nil
}

type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity razorpayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Method           string          `json:"method"`
	ErrorDescription string          `json:"error_description"`
	Notes            json.RawMessage `json:"notes"`
}

type razorpayOrder struct {
	ID    string          `json:"id"`
	Notes json.RawMessage `json:"notes"`
}

// Parse decodes the envelope. Order notes win over payment notes.
func (g *Razorpay) Parse(raw []byte) (Notification, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Notification{}, ErrMalformedPayload.Wrap(err)
	}

	n := Notification{Event: env.Event, Kind: KindIgnored}
	switch env.Event {
	case "payment.authorized", "payment.captured", "order.paid":
		n.Kind = KindCaptured
	case "payment.failed":
		n.Kind = KindFailed
	default:
		return n, nil
	}

	pay := env.Payload.Payment.Entity
	n.PaymentID = pay.ID
	n.OrderID = pay.OrderID
	if n.OrderID == "" {
		n.OrderID = env.Payload.Order.Entity.ID
	}
	n.Amount = billing.NewMoney(pay.Amount, strings.ToUpper(pay.Currency))
	n.Method = pay.Method
	n.Reason = pay.ErrorDescription
	if n.PaymentID == "" || n.OrderID == "" {
		return n, ErrMalformedPayload.Withf("%s carries no payment or order id", env.Event)
	}

	notes := razorpayNotes(env.Payload.Order.Entity.Notes).merge(razorpayNotes(pay.Notes))
	intent, err := ParseIntent(notes)
	if err != nil {
		return n, err
	}
	n.Intent = intent
	return n, nil
}

// razorpayNotes decodes notes, which Razorpay sends as an empty array when
// no notes were set.
func razorpayNotes(raw json.RawMessage) Notes {
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return Notes{}
	}
	return notesFrom(m)
}

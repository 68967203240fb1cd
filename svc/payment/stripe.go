package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// StripeSignatureHeader carries the timestamped v1 signature.
const StripeSignatureHeader = "Stripe-Signature"

// Stripe handles Stripe payment intent events.
type Stripe struct {
	secret string
}

// NewStripe creates the gateway with the endpoint signing secret.
func NewStripe(secret string) *Stripe {
	return &Stripe{secret: secret}
}

func (g *Stripe) Name() string { return "stripe" }

// Verify checks the signature and the timestamp tolerance. Events from other
// API versions are accepted; only the payment intent fields below are read.
func (g *Stripe) Verify(raw []byte, header http.Header) error {
	_, err := webhook.ConstructEventWithOptions(raw, header.Get(StripeSignatureHeader), g.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return ErrInvalidSignature.Wrap(err)
	}
	return nil
}

// Parse decodes payment_intent events.
func (g *Stripe) Parse(raw []byte) (Notification, error) {
	var ev stripe.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Notification{}, ErrMalformedPayload.Wrap(err)
	}

	n := Notification{Event: string(ev.Type), Kind: KindIgnored}
	switch ev.Type {
	case "payment_intent.succeeded":
		n.Kind = KindCaptured
	case "payment_intent.payment_failed":
		n.Kind = KindFailed
	default:
		return n, nil
	}
	if ev.Data == nil {
		return n, ErrMalformedPayload.Withf("%s carries no data", ev.Type)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return n, ErrMalformedPayload.Wrap(err)
	}
	notes := Notes(pi.Metadata)
	if notes == nil {
		notes = Notes{}
	}
	n.PaymentID = pi.ID
	n.OrderID = notes[NoteOrderID]
	if n.OrderID == "" {
		n.OrderID = pi.ID
	}
	if n.PaymentID == "" {
		return n, ErrMalformedPayload.Withf("%s carries no payment intent id", ev.Type)
	}
	n.Amount = billing.NewMoney(pi.Amount, strings.ToUpper(string(pi.Currency)))
	if len(pi.PaymentMethodTypes) > 0 {
		n.Method = pi.PaymentMethodTypes[0]
	}
	if pi.LastPaymentError != nil {
		n.Reason = pi.LastPaymentError.Msg
	}

	intent, err := ParseIntent(notes)
	if err != nil {
		return n, err
	}
	n.Intent = intent
	return n, nil
}

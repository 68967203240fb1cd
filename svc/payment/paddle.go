package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// PaddleSignatureHeader carries "ts=...;h1=..." signatures.
const PaddleSignatureHeader = "Paddle-Signature"

// Paddle handles Paddle Billing notifications.
type Paddle struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddle creates the gateway with the notification destination secret.
func NewPaddle(secret string) *Paddle {
	return &Paddle{verifier: paddle.NewWebhookVerifier(secret)}
}

func (g *Paddle) Name() string { return "paddle" }

// Verify runs the SDK verifier. It reads the body from a request, so one is
// rebuilt around raw.
func (g *Paddle) Verify(raw []byte, header http.Header) error {
	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	if err != nil {
		return ErrInvalidSignature.Wrap(err)
	}
	req.Header.Set(PaddleSignatureHeader, header.Get(PaddleSignatureHeader))

	ok, err := g.verifier.Verify(req)
	if err != nil {
		return ErrInvalidSignature.Wrap(err)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

type paddleEnvelope struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID         string         `json:"id"`
		Currency   string         `json:"currency_code"`
		CustomData map[string]any `json:"custom_data"`
		Details    struct {
			Totals struct {
				GrandTotal string `json:"grand_total"`
			} `json:"totals"`
		} `json:"details"`
		Payments []struct {
			PaymentAttemptID string `json:"payment_attempt_id"`
			ErrorCode        string `json:"error_code"`
			MethodDetails    struct {
				Type string `json:"type"`
			} `json:"method_details"`
		} `json:"payments"`
	} `json:"data"`
}

// Parse decodes transaction notifications. The transaction id is the
// payment id; the order id comes from custom data when the order was created
// here, else it is the transaction id too.
func (g *Paddle) Parse(raw []byte) (Notification, error) {
	var env paddleEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Notification{}, ErrMalformedPayload.Wrap(err)
	}

	n := Notification{Event: env.EventType, Kind: KindIgnored}
	switch env.EventType {
	case "transaction.completed", "transaction.paid":
		n.Kind = KindCaptured
	case "transaction.payment_failed":
		n.Kind = KindFailed
	default:
		return n, nil
	}

	d := env.Data
	notes := notesFrom(d.CustomData)
	n.PaymentID = d.ID
	n.OrderID = notes[NoteOrderID]
	if n.OrderID == "" {
		n.OrderID = d.ID
	}
	if n.PaymentID == "" {
		return n, ErrMalformedPayload.Withf("%s carries no transaction id", env.EventType)
	}
	if total := d.Details.Totals.GrandTotal; total != "" {
		amount, err := strconv.ParseInt(total, 10, 64)
		if err != nil {
			return n, ErrMalformedPayload.Withf("grand_total %q is not an amount", total)
		}
		n.Amount = billing.NewMoney(amount, strings.ToUpper(d.Currency))
	}
	if len(d.Payments) > 0 {
		last := d.Payments[0]
		n.Method = last.MethodDetails.Type
		n.Reason = last.ErrorCode
	}

	intent, err := ParseIntent(notes)
	if err != nil {
		return n, err
	}
	n.Intent = intent
	return n, nil
}

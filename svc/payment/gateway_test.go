package payment_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	pkgwebhook "github.com/dmitrymomot/hostelkit/pkg/webhook"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/payment"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

const secret = "whsec_test"

func razorpayBody(event, orderID, paymentID string, notes string) []byte {
	return []byte(fmt.Sprintf(`{"entity":"event","event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":100000,"currency":"inr","method":"upi","error_description":"card declined","notes":[]}},"order":{"entity":{"id":%q,"notes":%s}}}}`,
		event, paymentID, orderID, orderID, notes))
}

func razorpayHeader(body []byte) http.Header {
	h := http.Header{}
	h.Set(payment.RazorpaySignatureHeader, pkgwebhook.Sign(secret, body))
	return h
}

func TestRazorpay(t *testing.T) {
	t.Parallel()
	g := payment.NewRazorpay(secret)
	assert.Equal(t, "razorpay", g.Name())

	body := razorpayBody("payment.captured", "order_1", "pay_1", `{"userId":"u1","subscriptionPlanId":"p1","bedCount":20,"branchCount":"1","billingCycle":"monthly"}`)

	t.Run("verifies raw bytes", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, g.Verify(body, razorpayHeader(body)))

		err := g.Verify(append([]byte(" "), body...), razorpayHeader(body))
		require.ErrorIs(t, err, payment.ErrInvalidSignature)
		require.ErrorIs(t, g.Verify(body, http.Header{}), payment.ErrInvalidSignature)
	})

	t.Run("parses captured payment", func(t *testing.T) {
		t.Parallel()
		n, err := g.Parse(body)
		require.NoError(t, err)
		assert.Equal(t, payment.KindCaptured, n.Kind)
		assert.Equal(t, "order_1", n.OrderID)
		assert.Equal(t, "pay_1", n.PaymentID)
		assert.Equal(t, billing.NewMoney(100000, "INR"), n.Amount)
		assert.Equal(t, "upi", n.Method)
		assert.Equal(t, payment.SubscriptionIntent{User: "u1", PlanID: "p1", Beds: 20, Branches: 1, Cycle: subscription.CycleMonthly}, n.Intent)
	})

	t.Run("parses failure", func(t *testing.T) {
		t.Parallel()
		n, err := g.Parse(razorpayBody("payment.failed", "order_1", "pay_2", `{"userId":"u1","subscriptionPlanId":"p1"}`))
		require.NoError(t, err)
		assert.Equal(t, payment.KindFailed, n.Kind)
		assert.Equal(t, "card declined", n.Reason)
	})

	t.Run("ignores other events", func(t *testing.T) {
		t.Parallel()
		n, err := g.Parse([]byte(`{"event":"refund.created","payload":{}}`))
		require.NoError(t, err)
		assert.Equal(t, payment.KindIgnored, n.Kind)
		assert.Nil(t, n.Intent)
	})

	t.Run("rejects malformed", func(t *testing.T) {
		t.Parallel()
		_, err := g.Parse([]byte(`{"event":`))
		require.ErrorIs(t, err, payment.ErrMalformedPayload)
		_, err = g.Parse(razorpayBody("payment.captured", "order_1", "pay_1", `[]`))
		require.ErrorIs(t, err, payment.ErrMissingMetadata)
	})
}

func paddleHeader(body []byte, ts int64) http.Header {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d:", ts)
	mac.Write(body)
	h := http.Header{}
	h.Set(payment.PaddleSignatureHeader, fmt.Sprintf("ts=%d;h1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return h
}

func TestPaddle(t *testing.T) {
	t.Parallel()
	g := payment.NewPaddle(secret)
	assert.Equal(t, "paddle", g.Name())

	body := []byte(`{"event_id":"evt_1","event_type":"transaction.completed","data":{"id":"txn_1","currency_code":"inr","custom_data":{"userId":"u1","purpose":"addon","extraBeds":4,"orderId":"order_9"},"details":{"totals":{"grand_total":"8000"}},"payments":[{"payment_attempt_id":"pa_1","method_details":{"type":"card"}}]}}`)

	require.NoError(t, g.Verify(body, paddleHeader(body, time.Now().Unix())))
	require.ErrorIs(t, g.Verify([]byte(`{}`), paddleHeader(body, time.Now().Unix())), payment.ErrInvalidSignature)
	require.ErrorIs(t, g.Verify(body, http.Header{}), payment.ErrInvalidSignature)

	n, err := g.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, payment.KindCaptured, n.Kind)
	assert.Equal(t, "order_9", n.OrderID)
	assert.Equal(t, "txn_1", n.PaymentID)
	assert.Equal(t, billing.NewMoney(8000, "INR"), n.Amount)
	assert.Equal(t, "card", n.Method)
	assert.Equal(t, payment.AddonIntent{User: "u1", ExtraBeds: 4}, n.Intent)

	n, err = g.Parse([]byte(`{"event_type":"subscription.created","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, payment.KindIgnored, n.Kind)
}

func TestStripe(t *testing.T) {
	t.Parallel()
	g := payment.NewStripe(secret)
	assert.Equal(t, "stripe", g.Name())

	body := []byte(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","object":"payment_intent","amount":250000,"currency":"inr","payment_method_types":["card"],"metadata":{"userId":"u1","subscriptionPlanId":"p1"},"last_payment_error":{"message":"insufficient funds"}}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: secret, Timestamp: time.Now()})

	h := http.Header{}
	h.Set(payment.StripeSignatureHeader, signed.Header)
	require.NoError(t, g.Verify(body, h))

	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: secret, Timestamp: time.Now().Add(-time.Hour)})
	h.Set(payment.StripeSignatureHeader, stale.Header)
	require.ErrorIs(t, g.Verify(body, h), payment.ErrInvalidSignature)

	n, err := g.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, payment.KindFailed, n.Kind)
	assert.Equal(t, "pi_1", n.PaymentID)
	assert.Equal(t, "pi_1", n.OrderID)
	assert.Equal(t, billing.NewMoney(250000, "INR"), n.Amount)
	assert.Equal(t, "insufficient funds", n.Reason)
	assert.Equal(t, payment.SubscriptionIntent{User: "u1", PlanID: "p1"}, n.Intent)
}

func TestGateways(t *testing.T) {
	t.Parallel()
	assert.Empty(t, payment.Gateways(payment.DefaultConfig()))

	cfg := payment.DefaultConfig()
	cfg.RazorpayWebhookSecret = "a"
	cfg.StripeWebhookSecret = "b"
	var names []string
	for _, g := range payment.Gateways(cfg) {
		names = append(names, g.Name())
	}
	assert.Equal(t, []string{"razorpay", "stripe"}, names)
}

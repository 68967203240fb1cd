package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/file"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/payment"
	"github.com/dmitrymomot/hostelkit/svc/plan"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(typ notify.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	rec     *payment.Reconciler
	engine  *subscription.Engine
	catalog *plan.Catalog
	basic   *plan.Plan
	events  *recorder
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := billing.FixedClock(testNow)

	catalog := plan.NewCatalog(plan.NewMemoryStore(), plan.WithClock(clock))
	basic, err := catalog.Create(ctx, plan.Plan{
		Name:             "Basic",
		BasePrice:        billing.NewMoney(100000, "INR"),
		BaseBedCount:     20,
		TopUpPricePerBed: billing.NewMoney(2000, "INR"),
		MaxBeds:          plan.IntPtr(40),
	})
	require.NoError(t, err)

	engine := subscription.NewEngine(subscription.NewMemoryStore(), catalog, billing.NewMemoryTransactor(), subscription.WithClock(clock))

	dir := t.TempDir()
	storage, err := file.NewLocalStorage(dir)
	require.NoError(t, err)

	events := &recorder{}
	rec := payment.NewReconciler(engine, []payment.Gateway{payment.NewRazorpay(secret)},
		payment.WithPublisher(events),
		payment.WithArchive(payment.NewArchive(storage, "webhooks")),
		payment.WithClock(clock),
	)
	return &fixture{rec: rec, engine: engine, catalog: catalog, basic: basic, events: events, dir: dir}
}

func (f *fixture) notes(user string) string {
	return `{"userId":"` + user + `","subscriptionPlanId":"` + f.basic.ID + `","bedCount":"20","billingCycle":"monthly"}`
}

func (f *fixture) deliver(body []byte) payment.Outcome {
	return f.rec.HandleWebhook(context.Background(), "razorpay", body, razorpayHeader(body))
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.rec.Wait(ctx))
}

func (f *fixture) archived(t *testing.T, folder string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(filepath.ToSlash(path), "/"+folder+"/") {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestHandleWebhookCaptured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	o := f.deliver(razorpayBody("payment.captured", "order_1", "pay_1", f.notes("u1")))
	assert.Equal(t, http.StatusOK, o.Status)
	assert.True(t, o.Success)
	assert.Equal(t, payment.ResultApplied, o.Result)
	assert.Equal(t, subscription.ActionSubscribed, o.Action)

	sub, err := f.engine.CurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, o.SubscriptionID, sub.ID)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, subscription.PaymentCompleted, sub.PaymentStatus)
	require.Len(t, sub.Payments, 1)
	assert.Equal(t, "razorpay", sub.Payments[0].Gateway)

	f.wait(t)
	assert.Equal(t, 1, f.events.count(notify.TypePaymentSuccess))
	assert.Equal(t, 1, f.archived(t, "accepted"))
}

func TestHandleWebhookReplays(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	body := razorpayBody("payment.captured", "order_1", "pay_1", f.notes("u1"))

	const replays = 5
	outcomes := make([]payment.Outcome, replays)
	var wg sync.WaitGroup
	for i := range replays {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = f.deliver(body)
		}()
	}
	wg.Wait()

	applied, duplicates := 0, 0
	for _, o := range outcomes {
		assert.Equal(t, http.StatusOK, o.Status)
		assert.True(t, o.Success)
		switch o.Result {
		case payment.ResultApplied:
			applied++
		case payment.ResultDuplicate:
			duplicates++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, replays-1, duplicates)

	sub, err := f.engine.CurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sub.Payments, 1)

	p, err := f.catalog.Get(ctx, f.basic.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.SubscriberCount)

	f.wait(t)
	assert.Equal(t, 1, f.events.count(notify.TypePaymentSuccess))
}

func TestHandleWebhookAuthorizedThenCaptured(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	o := f.deliver(razorpayBody("payment.authorized", "order_1", "pay_1", f.notes("u1")))
	assert.Equal(t, payment.ResultApplied, o.Result)
	o = f.deliver(razorpayBody("payment.captured", "order_1", "pay_1", f.notes("u1")))
	assert.Equal(t, payment.ResultDuplicate, o.Result)
	assert.Equal(t, "payment already processed", o.Message)
}

func TestHandleWebhookRejectsSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	body := razorpayBody("payment.captured", "order_1", "pay_1", f.notes("u1"))

	h := http.Header{}
	h.Set(payment.RazorpaySignatureHeader, "deadbeef")
	o := f.rec.HandleWebhook(ctx, "razorpay", body, h)
	assert.Equal(t, http.StatusBadRequest, o.Status)
	assert.False(t, o.Success)
	assert.Equal(t, payment.ResultRejected, o.Result)

	ever, err := f.engine.HasEverSubscribed(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ever)

	f.wait(t)
	assert.Equal(t, 1, f.archived(t, "rejected"))
	assert.Zero(t, f.events.count(notify.TypePaymentSuccess))
}

func TestHandleWebhookOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown event is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.deliver([]byte(`{"event":"refund.processed","payload":{}}`))
		assert.Equal(t, http.StatusOK, o.Status)
		assert.True(t, o.Success)
		assert.Equal(t, payment.ResultIgnored, o.Result)
	})

	t.Run("unknown gateway", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.rec.HandleWebhook(ctx, "paypal", []byte(`{}`), http.Header{})
		assert.Equal(t, http.StatusNotFound, o.Status)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.deliver([]byte(`{"event":`))
		assert.Equal(t, http.StatusBadRequest, o.Status)
	})

	t.Run("missing metadata is not retried", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.deliver(razorpayBody("payment.captured", "order_1", "pay_1", `{}`))
		assert.Equal(t, http.StatusOK, o.Status)
		assert.False(t, o.Success)
		assert.Equal(t, payment.ResultNotApplied, o.Result)
	})

	t.Run("unknown plan is not retried", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.deliver(razorpayBody("payment.captured", "order_1", "pay_1", `{"userId":"u1","subscriptionPlanId":"missing"}`))
		assert.Equal(t, http.StatusOK, o.Status)
		assert.Equal(t, payment.ResultNotApplied, o.Result)

		ever, err := f.engine.HasEverSubscribed(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ever)
	})

	t.Run("tenant charge is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.deliver(razorpayBody("payment.captured", "order_1", "pay_1", `{"userId":"owner","purpose":"rent","tenantId":"t1"}`))
		assert.Equal(t, http.StatusOK, o.Status)
		assert.Equal(t, payment.ResultAcknowledged, o.Result)

		ever, err := f.engine.HasEverSubscribed(ctx, "owner")
		require.NoError(t, err)
		assert.False(t, ever)
	})
}

func TestHandleWebhookFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	o := f.deliver(razorpayBody("payment.failed", "order_0", "pay_0", f.notes("u1")))
	assert.Equal(t, http.StatusOK, o.Status)
	assert.Equal(t, payment.ResultAcknowledged, o.Result)

	require.Equal(t, payment.ResultApplied, f.deliver(razorpayBody("payment.captured", "order_1", "pay_1", f.notes("u1"))).Result)

	failed := razorpayBody("payment.failed", "order_2", "pay_2", f.notes("u1"))
	o = f.deliver(failed)
	assert.Equal(t, http.StatusOK, o.Status)
	assert.Equal(t, payment.ResultFailure, o.Result)
	o = f.deliver(failed)
	assert.Equal(t, payment.ResultFailure, o.Result)

	sub, err := f.engine.CurrentSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	require.Len(t, sub.Payments, 2)
	assert.Equal(t, subscription.PaymentEventFailed, sub.Payments[1].Status)
	assert.Equal(t, "card declined", sub.Payments[1].Reason)

	f.wait(t)
	assert.Equal(t, 3, f.events.count(notify.TypePaymentFailed))
}

type engineFunc func(ctx context.Context, app subscription.PaymentApplication) (subscription.PaymentResult, error)

func (f engineFunc) ApplyPayment(ctx context.Context, app subscription.PaymentApplication) (subscription.PaymentResult, error) {
	return f(ctx, app)
}

func (f engineFunc) RecordPaymentFailure(context.Context, string, subscription.PaymentEvent) (*subscription.Subscription, error) {
	return nil, billing.Storage(errors.New("down"))
}

func TestHandleWebhookTransientFailure(t *testing.T) {
	t.Parallel()
	rec := payment.NewReconciler(engineFunc(func(context.Context, subscription.PaymentApplication) (subscription.PaymentResult, error) {
		return subscription.PaymentResult{}, billing.Storage(errors.New("down"))
	}), []payment.Gateway{payment.NewRazorpay(secret)})

	body := razorpayBody("payment.captured", "order_1", "pay_1", `{"userId":"u1","subscriptionPlanId":"p1"}`)
	o := rec.HandleWebhook(context.Background(), "razorpay", body, razorpayHeader(body))
	assert.Equal(t, http.StatusInternalServerError, o.Status)
	assert.False(t, o.Success)
	assert.Equal(t, payment.ResultError, o.Result)

	body = razorpayBody("payment.failed", "order_1", "pay_2", `{"userId":"u1","subscriptionPlanId":"p1"}`)
	o = rec.HandleWebhook(context.Background(), "razorpay", body, razorpayHeader(body))
	assert.Equal(t, http.StatusInternalServerError, o.Status)
}

func TestHandler(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := f.rec.Handler("razorpay")

	body := razorpayBody("payment.captured", "order_1", "pay_1", f.notes("u1"))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(string(body)))
	req.Header = razorpayHeader(body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{"success": true, "message": "payment applied"}, resp)

	req = httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(string(body)))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid webhook signature"}`, rr.Body.String())

	small := payment.NewReconciler(f.engine, []payment.Gateway{payment.NewRazorpay(secret)}, payment.WithMaxBodyBytes(16))
	req = httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(string(body)))
	rr = httptest.NewRecorder()
	small.Handler("razorpay").ServeHTTP(rr, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	assert.Equal(t, []string{"razorpay"}, f.rec.Gateways())
	f.wait(t)
}

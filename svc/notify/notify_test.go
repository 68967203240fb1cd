package notify_test

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/email"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/notify"
)

func mustEvent(t *testing.T, userID string, p notify.Payload) notify.Event {
	t.Helper()
	e, err := notify.New(userID, p)
	require.NoError(t, err)
	return e
}

func receive(t *testing.T, ch <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	return notify.Event{}
}

func TestEventRoundTrip(t *testing.T) {
	t.Parallel()

	e := mustEvent(t, "u1", notify.PaymentSuccess{PaymentID: "pay_1", Amount: billing.NewMoney(99900, ""), PlanName: "Pro"})
	assert.Equal(t, notify.TypePaymentSuccess, e.Type)
	assert.Contains(t, string(e.Payload), `"paymentId":"pay_1"`)

	p, err := notify.Decode[notify.PaymentSuccess](e)
	require.NoError(t, err)
	assert.Equal(t, int64(99900), p.Amount.Amount)

	_, err = notify.Decode[notify.TrialExpired](e)
	assert.ErrorIs(t, err, notify.ErrPayloadMismatch)
}

func TestHub(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := hub.Register(ctx, "u1")
	require.NoError(t, err)
	second, err := hub.Register(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Connected("u1"))

	e := mustEvent(t, "u1", notify.TrialExpiring{SubscriptionID: "s1", DaysRemaining: 3})
	require.NoError(t, hub.Publish(ctx, e))
	assert.Equal(t, e.ID, receive(t, first.C()).ID)
	assert.Equal(t, e.ID, receive(t, second.C()).ID)

	// Nobody listens for u2: dropped without error.
	require.NoError(t, hub.Publish(ctx, mustEvent(t, "u2", notify.TrialExpired{SubscriptionID: "s2"})))

	first.Close()
	assert.Eventually(t, func() bool { return hub.Connected("u1") == 1 }, time.Second, 10*time.Millisecond)
}

func TestHubRunSweepsAndCloses(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(notify.WithSweepInterval(10 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	subCtx, subCancel := context.WithCancel(context.Background())
	sub, err := hub.Register(subCtx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	subCancel()
	assert.Eventually(t, func() bool { return hub.Connected("u1") == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err = hub.Register(context.Background(), "u1")
	assert.Error(t, err)
}

func TestMultiPublisher(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got []string
	record := func(name string) notify.Publisher {
		return notify.PublisherFunc(func(_ context.Context, e notify.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name)
			return nil
		})
	}
	failing := notify.PublisherFunc(func(context.Context, notify.Event) error { return errors.New("down") })

	m := notify.NewMultiPublisher(logger.Discard(), record("a"), failing, record("b"))
	err := m.Publish(context.Background(), mustEvent(t, "u1", notify.TrialExpired{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRedisBridge(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two instances sharing Redis.
	hubA, hubB := notify.NewHub(), notify.NewHub()
	bridgeA := notify.NewRedisBridge(client, hubA)
	bridgeB := notify.NewRedisBridge(client, hubB)
	go func() { _ = bridgeA.Run(ctx) }()
	go func() { _ = bridgeB.Run(ctx) }()
	<-bridgeA.Ready()
	<-bridgeB.Ready()

	sub, err := hubB.Register(ctx, "u1")
	require.NoError(t, err)

	e := mustEvent(t, "u1", notify.UsageLimitWarning{LimitType: "beds", CurrentUsage: 9, Limit: 10})
	require.NoError(t, bridgeA.Publish(ctx, e))

	got := receive(t, sub.C())
	assert.Equal(t, e.ID, got.ID)
	w, err := notify.Decode[notify.UsageLimitWarning](got)
	require.NoError(t, err)
	assert.Equal(t, 9, w.CurrentUsage)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func TestEmailPublisher(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	dir := notify.DirectoryFunc(func(_ context.Context, userID string) (string, error) {
		return userID + "@example.com", nil
	})
	p := notify.NewEmailPublisher(sender, dir, logger.Discard())
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, mustEvent(t, "u1", notify.TrialExpiring{DaysRemaining: 2})))
	require.NoError(t, p.Publish(ctx, mustEvent(t, "u1", notify.PaymentFailed{PaymentID: "pay_9", Error: "card declined"})))
	require.NoError(t, p.Publish(ctx, mustEvent(t, "u1", notify.SubscriptionUpdated{PlanName: "Pro"})))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "u1@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].HTMLBody, "2 day(s)")
	assert.Equal(t, string(notify.TypePaymentFailed), sender.sent[1].Tag)
	assert.Contains(t, sender.sent[1].HTMLBody, "card declined")
}

func TestStreamHandler(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub()
	h := notify.StreamHandler(hub, func(r *http.Request) (string, bool) {
		id := r.Header.Get("X-User")
		return id, id != ""
	}, logger.Discard())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-User", "u1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	assert.Eventually(t, func() bool { return hub.Connected("u1") == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(ctx, mustEvent(t, "u1", notify.TrialExpiring{DaysRemaining: 3})))

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before event")
			if strings.Contains(line, "TRIAL_EXPIRING") {
				assert.Contains(t, line, `"daysRemaining":3`)
				return
			}
		case <-deadline:
			t.Fatal("event not streamed")
		}
	}
}

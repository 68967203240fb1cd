package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/hostelkit/pkg/async"
	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// Engine applies payments to the subscription lifecycle.
type Engine interface {
	ApplyPayment(ctx context.Context, app subscription.PaymentApplication) (subscription.PaymentResult, error)
	RecordPaymentFailure(ctx context.Context, userID string, ev subscription.PaymentEvent) (*subscription.Subscription, error)
}

// Result names what happened to a delivery.
type Result string

const (
	ResultApplied      Result = "applied"
	ResultDuplicate    Result = "duplicate"
	ResultFailure      Result = "failure_recorded"
	ResultIgnored      Result = "ignored"
	ResultAcknowledged Result = "acknowledged"
	ResultNotApplied   Result = "not_applied"
	ResultRejected     Result = "rejected"
	ResultError        Result = "error"
)

// Outcome is the response owed to the gateway. Every handled delivery,
// including duplicates and events this system does not use, gets 200 so the
// gateway stops retrying. Only rejected signatures get 400 and only
// transient failures get 500.
type Outcome struct {
	Status         int                        `json:"-"`
	Success        bool                       `json:"success"`
	Message        string                     `json:"message"`
	Result         Result                     `json:"-"`
	SubscriptionID string                     `json:"-"`
	Action         subscription.PaymentAction `json:"-"`
}

func outcome(status int, res Result, msg string) Outcome {
	return Outcome{Status: status, Success: status == http.StatusOK && res != ResultNotApplied, Message: msg, Result: res}
}

// Reconciler turns gateway deliveries into lifecycle changes.
type Reconciler struct {
	gateways map[string]Gateway
	engine   Engine
	pub      notify.Publisher
	archive  *Archive
	runner   *async.Runner
	metrics  *Metrics
	maxBody  int64
	now      billing.Clock
	log      *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPublisher sets where payment_success and payment_failed go.
func WithPublisher(p notify.Publisher) Option {
	return func(r *Reconciler) { r.pub = p }
}

// WithArchive stores every delivery's raw body.
func WithArchive(a *Archive) Option {
	return func(r *Reconciler) { r.archive = a }
}

// WithRunner sets the runner for side effects. Share it with the server so
// shutdown can wait for pending tasks.
func WithRunner(run *async.Runner) Option {
	return func(r *Reconciler) { r.runner = run }
}

// WithMetrics sets the collectors.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithMaxBodyBytes caps request bodies read by Handler.
func WithMaxBodyBytes(n int64) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxBody = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now billing.Clock) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// NewReconciler creates a Reconciler serving gateways.
func NewReconciler(engine Engine, gateways []Gateway, opts ...Option) *Reconciler {
	if engine == nil {
		panic("payment: Engine is required")
	}
	r := &Reconciler{
		gateways: make(map[string]Gateway, len(gateways)),
		engine:   engine,
		pub:      notify.Nop,
		maxBody:  DefaultConfig().MaxBodyBytes,
		now:      billing.SystemClock,
		log:      logger.Discard(),
	}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runner == nil {
		r.runner = async.NewRunner(async.WithLogger(r.log))
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	return r
}

// Gateways returns the mounted gateway names in order.
func (r *Reconciler) Gateways() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Wait blocks until pending side effects finished or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	return r.runner.Wait(ctx)
}

// HandleWebhook processes one delivery. raw must be the exact request body.
func (r *Reconciler) HandleWebhook(ctx context.Context, gateway string, raw []byte, header http.Header) Outcome {
	start := time.Now()
	o := r.handle(ctx, gateway, raw, header)
	r.metrics.observe(gateway, o, time.Since(start))
	return o
}

func (r *Reconciler) handle(ctx context.Context, name string, raw []byte, header http.Header) Outcome {
	log := r.log.With(logger.Gateway(name))

	g, ok := r.gateways[name]
	if !ok {
		return outcome(http.StatusNotFound, ResultRejected, ErrUnknownGateway.Message)
	}

	if err := g.Verify(raw, header); err != nil {
		log.WarnContext(ctx, "webhook signature rejected",
			logger.Component("security"),
			slog.Int("size", len(raw)),
			logger.Error(err),
		)
		r.store(ctx, name, false, raw)
		return outcome(http.StatusBadRequest, ResultRejected, ErrInvalidSignature.Message)
	}
	r.store(ctx, name, true, raw)

	n, err := g.Parse(raw)
	log = log.With(logger.Event(n.Event), logger.OrderID(n.OrderID), logger.PaymentID(n.PaymentID))
	switch {
	case errors.Is(err, ErrMissingMetadata):
		log.ErrorContext(ctx, "webhook not applied", logger.Error(err))
		return outcome(http.StatusOK, ResultNotApplied, err.Error())
	case err != nil:
		log.WarnContext(ctx, "webhook payload rejected", logger.Error(err))
		return outcome(http.StatusBadRequest, ResultRejected, ErrMalformedPayload.Message)
	}

	switch n.Kind {
	case KindCaptured:
		return r.captured(ctx, log, name, n)
	case KindFailed:
		return r.failed(ctx, log, name, n)
	default:
		log.DebugContext(ctx, "webhook event ignored")
		return outcome(http.StatusOK, ResultIgnored, "event ignored")
	}
}

func (r *Reconciler) captured(ctx context.Context, log *slog.Logger, gateway string, n Notification) Outcome {
	app, ok := n.Application(gateway)
	if !ok {
		log.InfoContext(ctx, "tenant payment acknowledged", logger.UserID(n.Intent.UserID()))
		return outcome(http.StatusOK, ResultAcknowledged, "payment acknowledged")
	}

	res, err := r.engine.ApplyPayment(ctx, app)
	if err != nil {
		return r.failure(ctx, log, err)
	}
	o := outcome(http.StatusOK, ResultApplied, "payment applied")
	if res.Duplicate {
		o = outcome(http.StatusOK, ResultDuplicate, "payment already processed")
	}
	if res.Subscription != nil {
		o.SubscriptionID = res.Subscription.ID
	}
	o.Action = res.Action
	if res.Duplicate {
		return o
	}

	sub := res.Subscription
	payload := notify.PaymentSuccess{PaymentID: n.PaymentID, Amount: n.Amount, PlanName: sub.Plan.Name}
	r.runner.Go(ctx, "payment_success", func(ctx context.Context) error {
		notify.Send(ctx, r.pub, r.log, app.UserID, payload)
		return nil
	})
	log.InfoContext(ctx, "payment applied",
		logger.UserID(app.UserID),
		logger.SubscriptionID(sub.ID),
		"action", res.Action,
	)
	return o
}

func (r *Reconciler) failed(ctx context.Context, log *slog.Logger, gateway string, n Notification) Outcome {
	userID := n.Intent.UserID()
	if _, ok := n.Intent.(TenantChargeIntent); ok {
		log.InfoContext(ctx, "tenant payment failure acknowledged", logger.UserID(userID))
		return outcome(http.StatusOK, ResultAcknowledged, "payment failure acknowledged")
	}

	o := outcome(http.StatusOK, ResultFailure, "payment failure recorded")
	sub, err := r.engine.RecordPaymentFailure(ctx, userID, subscription.PaymentEvent{
		Gateway:   gateway,
		OrderID:   n.OrderID,
		PaymentID: n.PaymentID,
		Amount:    n.Amount,
		Method:    n.Method,
		Reason:    n.Reason,
	})
	switch {
	case errors.Is(err, subscription.ErrNoLiveSubscription):
		log.InfoContext(ctx, "payment failed for user without subscription", logger.UserID(userID))
		o = outcome(http.StatusOK, ResultAcknowledged, "payment failure acknowledged")
	case err != nil:
		return r.failure(ctx, log, err)
	default:
		o.SubscriptionID = sub.ID
	}

	reason := n.Reason
	if reason == "" {
		reason = "payment failed"
	}
	payload := notify.PaymentFailed{PaymentID: n.PaymentID, Error: reason}
	r.runner.Go(ctx, "payment_failed", func(ctx context.Context) error {
		notify.Send(ctx, r.pub, r.log, userID, payload)
		return nil
	})
	return o
}

// failure acknowledges permanent domain rejections, which a retry cannot
// fix, and asks the gateway to retry everything else.
func (r *Reconciler) failure(ctx context.Context, log *slog.Logger, err error) Outcome {
	var coded *billing.Error
	if errors.As(err, &coded) && coded.HTTPStatus() < http.StatusInternalServerError &&
		coded.Code != billing.CodeConflict && !billing.IsTransient(err) {
		log.ErrorContext(ctx, "webhook not applied", logger.Error(err))
		return outcome(http.StatusOK, ResultNotApplied, coded.Message)
	}
	log.ErrorContext(ctx, "webhook processing failed", logger.Error(err))
	return outcome(http.StatusInternalServerError, ResultError, "internal error")
}

func (r *Reconciler) store(ctx context.Context, gateway string, verified bool, raw []byte) {
	if r.archive == nil || len(raw) == 0 {
		return
	}
	at := r.now()
	body := slices.Clone(raw)
	r.runner.Go(ctx, "webhook_archive", func(ctx context.Context) error {
		_, err := r.archive.Store(ctx, gateway, verified, at, body)
		return err
	})
}

// Handler serves deliveries of one gateway.
func (r *Reconciler) Handler(gateway string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeOutcome(w, outcome(http.StatusRequestEntityTooLarge, ResultRejected, ErrPayloadTooLarge.Message))
				return
			}
			writeOutcome(w, outcome(http.StatusBadRequest, ResultRejected, "could not read body"))
			return
		}
		writeOutcome(w, r.HandleWebhook(req.Context(), gateway, raw, req.Header))
	})
}

func writeOutcome(w http.ResponseWriter, o Outcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(o.Status)
	_ = json.NewEncoder(w).Encode(o)
}

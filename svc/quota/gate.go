package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/entitlement"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// UsageRecorder stores the usage cache on the live subscription.
type UsageRecorder interface {
	RefreshUsage(ctx context.Context, userID string, u subscription.Usage) error
}

// Gate creates inventory only when the owner's plan allows it. The check and
// the insert share one locked inventory transaction, so concurrent requests
// cannot both pass against the same remaining quota.
type Gate struct {
	resolver  *entitlement.Resolver
	inventory inventory.Store
	usage     UsageRecorder
	pub       notify.Publisher
	cfg       Config
	now       billing.Clock
	metrics   *Metrics
	log       *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithPublisher sets where usage warnings go.
func WithPublisher(p notify.Publisher) Option {
	return func(g *Gate) { g.pub = p }
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(g *Gate) { g.cfg = cfg }
}

// WithClock overrides the time source.
func WithClock(now billing.Clock) Option {
	return func(g *Gate) { g.now = now }
}

// WithMetrics sets the collectors.
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// NewGate creates a Gate.
func NewGate(resolver *entitlement.Resolver, inv inventory.Store, usage UsageRecorder, opts ...Option) *Gate {
	if resolver == nil {
		panic("quota: entitlement.Resolver is required")
	}
	if inv == nil {
		panic("quota: inventory.Store is required")
	}
	if usage == nil {
		panic("quota: UsageRecorder is required")
	}
	g := &Gate{
		resolver:  resolver,
		inventory: inv,
		usage:     usage,
		pub:       notify.Nop,
		cfg:       DefaultConfig(),
		now:       billing.SystemClock,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = NewMetrics(nil)
	}
	return g
}

// check evaluates d inside a locked transaction and turns a refusal into a
// *DeniedError.
func (g *Gate) check(ctx context.Context, userID string, w inventory.Writer, d entitlement.Delta) (entitlement.Verdict, error) {
	v, err := g.resolver.Evaluate(ctx, userID, w, d)
	if err != nil {
		return v, err
	}
	g.metrics.decision(v)
	if !v.Allowed {
		g.log.InfoContext(ctx, "quota denied",
			logger.UserID(userID),
			"resource", v.Resource,
			"reason", v.Reason,
		)
		return v, &DeniedError{Verdict: v}
	}
	return v, nil
}

func ownProperty(ctx context.Context, w inventory.Writer, userID, propertyID string) error {
	p, err := w.Property(ctx, propertyID)
	if err != nil {
		return err
	}
	if p.OwnerID != userID {
		return inventory.ErrPropertyForbidden
	}
	return nil
}

// CreateRoom creates one room with its beds if the plan has room for it.
func (g *Gate) CreateRoom(ctx context.Context, userID, propertyID string, in inventory.RoomInput) (*inventory.Room, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		room    *inventory.Room
		verdict entitlement.Verdict
	)
	err := g.inventory.Locked(ctx, userID, func(ctx context.Context, w inventory.Writer) error {
		if err := ownProperty(ctx, w, userID, propertyID); err != nil {
			return err
		}
		var err error
		verdict, err = g.check(ctx, userID, w, entitlement.Delta{Rooms: 1, Beds: in.BedCount})
		if err != nil {
			return err
		}

		r, beds := inventory.NewRoom(userID, propertyID, in, g.now())
		outcome, err := w.InsertRoom(ctx, r, beds)
		if err != nil {
			return err
		}
		if outcome == inventory.Duplicate {
			return inventory.ErrDuplicateRoom.Withf("room %s already exists on floor %d", r.RoomNumber, r.Floor)
		}
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.InfoContext(ctx, "room created",
		logger.UserID(userID),
		logger.PropertyID(propertyID),
		"room_id", room.ID,
		"beds", room.BedCount,
	)
	g.afterCreate(ctx, userID, verdict)
	return room, nil
}

// RowIssue is a bulk row that was not created.
type RowIssue struct {
	Row        int    `json:"row"`
	Floor      int    `json:"floor"`
	RoomNumber string `json:"roomNumber"`
	Reason     string `json:"reason"`
}

// BulkResult splits a bulk upload into created rooms, rows skipped because
// the room already exists and rows that failed.
type BulkResult struct {
	Created []*inventory.Room `json:"created"`
	Skipped []RowIssue        `json:"skipped"`
	Failed  []RowIssue        `json:"failed"`
}

type roomKey struct {
	floor  int
	number string
}

// BulkCreateRooms creates many rooms in one property. Invalid rows fail on
// their own. The beds of all valid rows are checked against the remaining
// quota once; a breach aborts the whole batch before anything is written.
func (g *Gate) BulkCreateRooms(ctx context.Context, userID, propertyID string, rows []inventory.RoomInput) (BulkResult, error) {
	if len(rows) == 0 {
		return BulkResult{}, ErrEmptyBatch
	}
	if len(rows) > g.cfg.MaxBatch {
		return BulkResult{}, ErrBatchTooLarge.Withf("at most %d rows per upload, got %d", g.cfg.MaxBatch, len(rows))
	}

	var (
		base    BulkResult
		pending []int
		delta   entitlement.Delta
	)
	seen := make(map[roomKey]bool, len(rows))
	for i, in := range rows {
		issue := RowIssue{Row: i + 1, Floor: in.Floor, RoomNumber: in.Number()}
		if err := in.Validate(); err != nil {
			issue.Reason = rowReason(err)
			base.Failed = append(base.Failed, issue)
			continue
		}
		key := roomKey{floor: in.Floor, number: issue.RoomNumber}
		if seen[key] {
			issue.Reason = "duplicate row in upload"
			base.Skipped = append(base.Skipped, issue)
			continue
		}
		seen[key] = true
		pending = append(pending, i)
		delta.Rooms++
		delta.Beds += in.BedCount
	}
	if len(pending) == 0 {
		g.metrics.bulk(base)
		return base, nil
	}

	var (
		res     BulkResult
		verdict entitlement.Verdict
	)
	err := g.inventory.Locked(ctx, userID, func(ctx context.Context, w inventory.Writer) error {
		res = BulkResult{
			Skipped: append([]RowIssue(nil), base.Skipped...),
			Failed:  append([]RowIssue(nil), base.Failed...),
		}
		if err := ownProperty(ctx, w, userID, propertyID); err != nil {
			return err
		}
		var err error
		verdict, err = g.check(ctx, userID, w, delta)
		if err != nil {
			return err
		}

		now := g.now()
		for _, i := range pending {
			in := rows[i]
			issue := RowIssue{Row: i + 1, Floor: in.Floor, RoomNumber: in.Number()}
			room, beds := inventory.NewRoom(userID, propertyID, in, now)
			outcome, err := w.InsertRoom(ctx, room, beds)
			switch {
			case err != nil && errors.Is(err, context.Canceled):
				return err
			case err != nil:
				issue.Reason = rowReason(err)
				res.Failed = append(res.Failed, issue)
			case outcome == inventory.Duplicate:
				issue.Reason = "room already exists"
				res.Skipped = append(res.Skipped, issue)
			default:
				res.Created = append(res.Created, room)
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	g.metrics.bulk(res)
	g.log.InfoContext(ctx, "bulk room upload finished",
		logger.UserID(userID),
		logger.PropertyID(propertyID),
		logger.Count("created", len(res.Created)),
		logger.Count("skipped", len(res.Skipped)),
		logger.Count("failed", len(res.Failed)),
	)
	if len(res.Created) > 0 {
		g.afterCreate(ctx, userID, verdict)
	}
	return res, nil
}

func rowReason(err error) string {
	if errs := validator.Extract(err); len(errs) > 0 {
		var parts []string
		for field, msgs := range errs.Fields() {
			parts = append(parts, fmt.Sprintf("%s %s", field, strings.Join(msgs, ", ")))
		}
		return strings.Join(parts, "; ")
	}
	var coded *billing.Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return "could not be saved"
}

var cleanPropertyName = sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.SingleLine)

// CreateProperty opens a new property if the plan allows another branch.
func (g *Gate) CreateProperty(ctx context.Context, userID, name string) (*inventory.Property, error) {
	name = cleanPropertyName(name)
	if err := validator.Apply(
		validator.Required("name", name),
		validator.MaxLen("name", name, 120),
	); err != nil {
		return nil, ErrInvalidProperty.Wrap(err)
	}

	var (
		prop    *inventory.Property
		verdict entitlement.Verdict
	)
	err := g.inventory.Locked(ctx, userID, func(ctx context.Context, w inventory.Writer) error {
		var err error
		verdict, err = g.check(ctx, userID, w, entitlement.Delta{Branches: 1})
		if err != nil {
			return err
		}
		p := &inventory.Property{ID: uuid.NewString(), OwnerID: userID, Name: name, CreatedAt: g.now()}
		if err := w.InsertProperty(ctx, p); err != nil {
			return err
		}
		prop = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.InfoContext(ctx, "property created", logger.UserID(userID), logger.PropertyID(prop.ID))
	g.afterCreate(ctx, userID, verdict)
	return prop, nil
}

// afterCreate refreshes the usage cache and warns when a ceiling is close.
// Both are best effort.
func (g *Gate) afterCreate(ctx context.Context, userID string, v entitlement.Verdict) {
	u, err := g.inventory.Usage(ctx, userID)
	if err != nil {
		g.log.WarnContext(ctx, "usage recount failed", logger.UserID(userID), logger.Error(err))
		return
	}
	if err := g.usage.RefreshUsage(ctx, userID, subscription.Usage{Beds: u.Beds, Branches: u.Properties, Rooms: u.Rooms}); err != nil {
		g.log.WarnContext(ctx, "usage cache refresh failed", logger.UserID(userID), logger.Error(err))
	}

	for _, l := range []struct {
		res     entitlement.Resource
		current int
		max     int
	}{
		{entitlement.ResourceBeds, u.Beds, v.MaxAllowedBeds},
		{entitlement.ResourceRooms, u.Rooms, v.MaxRooms},
		{entitlement.ResourceBranches, u.Properties, v.MaxBranches},
	} {
		if l.max <= 0 || l.current*100 < l.max*g.cfg.WarnPercent {
			continue
		}
		notify.Send(ctx, g.pub, g.log, userID, notify.UsageLimitWarning{
			LimitType:    string(l.res),
			CurrentUsage: l.current,
			Limit:        l.max,
		})
	}
}

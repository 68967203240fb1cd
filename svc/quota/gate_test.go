package quota_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/entitlement"
	"github.com/dmitrymomot/hostelkit/svc/inventory"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/plan"
	"github.com/dmitrymomot/hostelkit/svc/quota"
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

func (r *recorder) warnings(t *testing.T) []notify.UsageLimitWarning {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.UsageLimitWarning
	for _, e := range r.events {
		if e.Type != notify.TypeUsageLimitWarning {
			continue
		}
		w, err := notify.Decode[notify.UsageLimitWarning](e)
		require.NoError(t, err)
		out = append(out, w)
	}
	return out
}

type fixture struct {
	gate      *quota.Gate
	engine    *subscription.Engine
	inventory inventory.Store
	events    *recorder
}

func newFixture(t *testing.T, opts ...quota.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := billing.FixedClock(testNow)

	catalog := plan.NewCatalog(plan.NewMemoryStore(), plan.WithClock(clock))
	_, err := catalog.Create(ctx, plan.Plan{
		Name:            "Trial",
		Kind:            plan.KindTrial,
		BaseBedCount:    10,
		MaxBeds:         plan.IntPtr(10),
		TrialPeriodDays: 14,
		Modules: plan.Grants{
			plan.ModuleProperties: {Enabled: true},
			plan.ModuleRooms:      {Enabled: true},
		},
	})
	require.NoError(t, err)

	engine := subscription.NewEngine(subscription.NewMemoryStore(), catalog, billing.NewMemoryTransactor(), subscription.WithClock(clock))
	inv := inventory.NewMemoryStore()
	events := &recorder{}
	resolver := entitlement.NewResolver(engine, inv, entitlement.WithClock(clock))

	opts = append([]quota.Option{quota.WithClock(clock), quota.WithPublisher(events)}, opts...)
	return &fixture{
		gate:      quota.NewGate(resolver, inv, engine, opts...),
		engine:    engine,
		inventory: inv,
		events:    events,
	}
}

func (f *fixture) usage(t *testing.T, owner string) inventory.Usage {
	t.Helper()
	u, err := f.inventory.Usage(context.Background(), owner)
	require.NoError(t, err)
	return u
}

func room(number string, beds int) inventory.RoomInput {
	return inventory.RoomInput{Floor: 1, RoomNumber: number, BedCount: beds}
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)

	r, err := f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("101", 4))
	require.NoError(t, err)
	assert.Equal(t, prop.ID, r.PropertyID)
	assert.Equal(t, 4, r.BedCount)

	u := f.usage(t, "owner-1")
	assert.Equal(t, 1, u.Rooms)
	assert.Equal(t, 4, u.Beds)

	sub, err := f.engine.CurrentSubscription(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrial, sub.Status)
	assert.Equal(t, 4, sub.Usage.Beds)
	assert.Equal(t, 1, sub.Usage.Rooms)
	assert.Equal(t, testNow, sub.Usage.RefreshedAt)
}

func TestCreateRoomDenied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)
	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("101", 6))
	require.NoError(t, err)
	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("102", 4))
	require.NoError(t, err)

	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("103", 1))
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, billing.CodeQuotaExceeded, billing.Code(err))

	var denied *quota.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, entitlement.ResourceBeds, denied.Verdict.Resource)
	assert.Equal(t, 10, denied.Verdict.CurrentBeds)
	assert.Equal(t, 10, denied.Verdict.MaxAllowedBeds)
	assert.Equal(t, 0, denied.Verdict.RemainingBeds)
	assert.True(t, denied.Verdict.RequiresUpgrade)
	assert.Equal(t, true, denied.Details()["requiresUpgrade"])

	assert.Equal(t, 10, f.usage(t, "owner-1").Beds)
}

func TestCreateRoomErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)
	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("101", 2))
	require.NoError(t, err)

	t.Run("duplicate room", func(t *testing.T) {
		_, err := f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("101", 2))
		require.ErrorIs(t, err, inventory.ErrDuplicateRoom)
	})

	t.Run("foreign property", func(t *testing.T) {
		_, err := f.gate.CreateRoom(ctx, "owner-2", prop.ID, room("201", 2))
		require.ErrorIs(t, err, inventory.ErrPropertyForbidden)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("", 2))
		require.ErrorIs(t, err, inventory.ErrInvalidRoom)
		_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("102", 0))
		require.ErrorIs(t, err, inventory.ErrInvalidRoom)
	})

	assert.Equal(t, 2, f.usage(t, "owner-1").Beds)
}

func TestCreateRoomUsageWarning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)
	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("101", 4))
	require.NoError(t, err)

	var beds []notify.UsageLimitWarning
	for _, w := range f.events.warnings(t) {
		if w.LimitType == string(entitlement.ResourceBeds) {
			beds = append(beds, w)
		}
	}
	assert.Empty(t, beds)

	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("102", 4))
	require.NoError(t, err)

	for _, w := range f.events.warnings(t) {
		if w.LimitType == string(entitlement.ResourceBeds) {
			beds = append(beds, w)
		}
	}
	require.Len(t, beds, 1)
	assert.Equal(t, 8, beds[0].CurrentUsage)
	assert.Equal(t, 10, beds[0].Limit)
}

func TestCreateProperty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gate.CreateProperty(ctx, "owner-1", "  ")
	require.ErrorIs(t, err, quota.ErrInvalidProperty)

	p, err := f.gate.CreateProperty(ctx, "owner-1", " Main ")
	require.NoError(t, err)
	assert.Equal(t, "Main", p.Name)
	assert.Equal(t, "owner-1", p.OwnerID)

	_, err = f.gate.CreateProperty(ctx, "owner-1", "Annex")
	var denied *quota.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, entitlement.ResourceBranches, denied.Verdict.Resource)
	assert.Equal(t, 1, denied.Verdict.MaxBranches)

	assert.Equal(t, 1, f.usage(t, "owner-1").Properties)
}

func TestBulkCreateRooms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)
	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("100", 2))
	require.NoError(t, err)

	res, err := f.gate.BulkCreateRooms(ctx, "owner-1", prop.ID, []inventory.RoomInput{
		room("101", 2),
		room("102", 0),
		room("101", 3),
		room("100", 1),
		room("103", 3),
	})
	require.NoError(t, err)

	require.Len(t, res.Created, 2)
	assert.Equal(t, "101", res.Created[0].RoomNumber)
	assert.Equal(t, "103", res.Created[1].RoomNumber)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, 2, res.Failed[0].Row)
	assert.Contains(t, res.Failed[0].Reason, "bed_count")

	require.Len(t, res.Skipped, 2)
	rows := []int{res.Skipped[0].Row, res.Skipped[1].Row}
	assert.ElementsMatch(t, []int{3, 4}, rows)

	u := f.usage(t, "owner-1")
	assert.Equal(t, 3, u.Rooms)
	assert.Equal(t, 7, u.Beds)
}

func TestBulkCreateRoomsAbortsOnBreach(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)
	_, err = f.gate.CreateRoom(ctx, "owner-1", prop.ID, room("100", 6))
	require.NoError(t, err)

	_, err = f.gate.BulkCreateRooms(ctx, "owner-1", prop.ID, []inventory.RoomInput{
		room("101", 2),
		room("102", 2),
		room("103", 2),
	})
	var denied *quota.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, 4, denied.Verdict.RemainingBeds)

	u := f.usage(t, "owner-1")
	assert.Equal(t, 1, u.Rooms)
	assert.Equal(t, 6, u.Beds)
}

func TestBulkCreateRoomsLimits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := quota.DefaultConfig()
	cfg.MaxBatch = 2
	f := newFixture(t, quota.WithConfig(cfg))

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)

	_, err = f.gate.BulkCreateRooms(ctx, "owner-1", prop.ID, nil)
	require.ErrorIs(t, err, quota.ErrEmptyBatch)

	_, err = f.gate.BulkCreateRooms(ctx, "owner-1", prop.ID, []inventory.RoomInput{room("1", 1), room("2", 1), room("3", 1)})
	require.ErrorIs(t, err, quota.ErrBatchTooLarge)

	res, err := f.gate.BulkCreateRooms(ctx, "owner-1", prop.ID, []inventory.RoomInput{room("", 1), room("2", 99)})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Failed, 2)
}

func TestBulkCreateRoomsConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	prop, err := f.gate.CreateProperty(ctx, "owner-1", "Main")
	require.NoError(t, err)

	const uploads = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		denied  int
	)
	for i := range uploads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.gate.BulkCreateRooms(ctx, "owner-1", prop.ID, []inventory.RoomInput{
				room(fmt.Sprintf("%d01", i), 3),
				room(fmt.Sprintf("%d02", i), 3),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, quota.ErrQuotaExceeded):
				denied++
			case err == nil:
				created += len(res.Created)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	assert.Equal(t, uploads-1, denied)
	u := f.usage(t, "owner-1")
	assert.Equal(t, 6, u.Beds)
	assert.Equal(t, 2, u.Rooms)
}

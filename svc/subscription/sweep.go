package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
	"github.com/dmitrymomot/hostelkit/svc/notify"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// Sweep names used in reports and metrics.
const (
	SweepRenewal       = "renewal"
	SweepExpiry        = "expiry"
	SweepTrialExpiry   = "trial_expiry"
	SweepTrialReminder = "trial_reminder"
)

const (
	outcomeProcessed = "processed"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"

	trialReminderBackoff = 20 * time.Hour
)

// SweepFailure names a record a sweep could not process.
type SweepFailure struct {
	SubscriptionID string `json:"subscription_id"`
	Error          string `json:"error"`
}

// SweepReport summarizes one pass of a periodic job. Records changed by
// someone else between listing and processing count as skipped.
type SweepReport struct {
	Sweep     string         `json:"sweep"`
	Processed []string       `json:"processed"`
	Skipped   []string       `json:"skipped"`
	Failed    []SweepFailure `json:"failed"`
}

func (r *SweepReport) record(m *Metrics, id string, err error) {
	switch {
	case err == nil:
		r.Processed = append(r.Processed, id)
		m.sweep(r.Sweep, outcomeProcessed)
	case errors.Is(err, ErrAlreadyRenewed), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrPaymentOutstanding):
		r.Skipped = append(r.Skipped, id)
		m.sweep(r.Sweep, outcomeSkipped)
	default:
		r.Failed = append(r.Failed, SweepFailure{SubscriptionID: id, Error: err.Error()})
		m.sweep(r.Sweep, outcomeFailed)
	}
}

// GetSubscriptionsDueForRenewal lists auto-renewing active records that end
// within the renewal window.
func (e *Engine) GetSubscriptionsDueForRenewal(ctx context.Context) ([]*Subscription, error) {
	return e.store.DueForRenewal(ctx, e.now().Add(e.cfg.RenewalWindow))
}

// ProcessSubscriptionRenewal moves the end of s forward by one cycle. s is
// the record as listed; if it changed since, the renewal is refused with
// ErrAlreadyRenewed so replays never extend twice. Only paid records renew,
// and a priced renewal leaves the new period pending until its payment is
// applied.
func (e *Engine) ProcessSubscriptionRenewal(ctx context.Context, s *Subscription) (*Subscription, error) {
	var sub *Subscription
	err := e.exclusive(ctx, s.UserID, func(ctx context.Context) error {
		var err error
		sub, err = e.store.Get(ctx, s.ID)
		if err != nil {
			return err
		}
		if sub.Status != StatusActive || !sub.AutoRenew || !sub.EndDate.Equal(s.EndDate) {
			return ErrAlreadyRenewed
		}
		if sub.PaymentStatus != PaymentCompleted {
			return ErrPaymentOutstanding
		}
		sub.EndDate = sub.BillingCycle.Advance(sub.EndDate)
		sub.RenewalCount++
		if !sub.TotalPrice.IsZero() {
			sub.PaymentStatus = PaymentPending
		}
		sub.UpdatedAt = e.now()
		return e.store.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "subscription renewed",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		"end_date", sub.EndDate,
	)
	e.emitUpdated(ctx, sub)
	return sub, nil
}

// GetExpiredSubscriptions lists active records whose end date has passed.
func (e *Engine) GetExpiredSubscriptions(ctx context.Context) ([]*Subscription, error) {
	return e.store.Expired(ctx, e.now())
}

// ExpireSubscription marks a record expired and releases its plan seat.
// Expiring an already expired record is a no-op.
func (e *Engine) ExpireSubscription(ctx context.Context, id, reason string) (*Subscription, error) {
	if reason == "" {
		reason = ReasonPeriodEnd
	}
	target, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Status == StatusExpired {
		return target, nil
	}

	var (
		sub     *Subscription
		expired bool
	)
	err = e.exclusive(ctx, target.UserID, func(ctx context.Context) error {
		var err error
		expired = false
		sub, err = e.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if sub.Status == StatusExpired {
			return nil
		}
		if err := e.retire(ctx, sub, EventExpire, reason); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !expired {
		return sub, nil
	}

	e.log.InfoContext(ctx, "subscription expired",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		"reason", reason,
	)
	e.emit(ctx, sub.UserID, notify.SubscriptionExpired{SubscriptionID: sub.ID, PlanName: sub.Plan.Name})
	return sub, nil
}

// CheckAndHandleTrialExpirations expires every trial whose trial end has
// passed and moves the user onto the limited plan in the same transaction.
func (e *Engine) CheckAndHandleTrialExpirations(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepTrialExpiry}
	trials, err := e.store.TrialsEndingBefore(ctx, e.now())
	if err != nil {
		return report, err
	}

	for _, t := range trials {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fallback, err := e.expireTrial(ctx, t)
		report.record(e.metrics, t.ID, err)
		if err != nil {
			e.log.WarnContext(ctx, "trial expiry failed", logger.SubscriptionID(t.ID), logger.Error(err))
			continue
		}
		e.emit(ctx, t.UserID, notify.TrialExpired{SubscriptionID: t.ID, FallbackPlanName: fallback.Plan.Name})
		e.emitUpdated(ctx, fallback)
	}

	e.log.InfoContext(ctx, "trial expiry sweep finished",
		logger.Count("processed", len(report.Processed)),
		logger.Count("failed", len(report.Failed)),
	)
	return report, nil
}

func (e *Engine) expireTrial(ctx context.Context, t *Subscription) (*Subscription, error) {
	var fallback *Subscription
	err := e.exclusive(ctx, t.UserID, func(ctx context.Context) error {
		fallback = nil
		cur, err := e.store.Get(ctx, t.ID)
		if err != nil {
			return err
		}
		if cur.Status != StatusTrial {
			return ErrAlreadyRenewed
		}
		limited, err := e.catalog.LimitedPlan(ctx)
		if err != nil {
			return err
		}
		if err := e.retire(ctx, cur, EventExpire, ReasonTrialEnded); err != nil {
			return err
		}
		sub, err := e.open(limited, SubscribeParams{UserID: cur.UserID, PlanID: limited.ID, Cycle: limitedCycle(limited)})
		if err != nil {
			return err
		}
		sub.PreviousSubscriptionID = cur.ID
		sub.Usage = cur.Usage
		clampUsage(sub)
		if err := e.store.Insert(ctx, sub); err != nil {
			return err
		}
		fallback = sub
		return e.catalog.AdjustSubscribers(ctx, limited.ID, 1)
	})
	return fallback, err
}

func limitedCycle(p *plan.Plan) Cycle {
	if p.BillingCycle == plan.CycleAnnual {
		return CycleAnnual
	}
	return CycleMonthly
}

// NotifyExpiringTrials reminds users whose trial ends within the reminder
// window. A user is reminded at most once per backoff period.
func (e *Engine) NotifyExpiringTrials(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepTrialReminder}
	now := e.now()
	window := time.Duration(e.cfg.TrialReminderDays) * 24 * time.Hour
	trials, err := e.store.TrialsEndingBefore(ctx, now.Add(window))
	if err != nil {
		return report, err
	}

	for _, t := range trials {
		if t.TrialEndDate == nil || !t.TrialEndDate.After(now) {
			continue
		}
		if t.TrialReminderAt != nil && now.Sub(*t.TrialReminderAt) < trialReminderBackoff {
			report.Skipped = append(report.Skipped, t.ID)
			e.metrics.sweep(report.Sweep, outcomeSkipped)
			continue
		}

		var sent *Subscription
		err := e.exclusive(ctx, t.UserID, func(ctx context.Context) error {
			sent = nil
			cur, err := e.store.Get(ctx, t.ID)
			if err != nil {
				return err
			}
			if cur.Status != StatusTrial || cur.TrialReminderAt != nil && now.Sub(*cur.TrialReminderAt) < trialReminderBackoff {
				return ErrAlreadyRenewed
			}
			stamp := now
			cur.TrialReminderAt = &stamp
			if err := e.store.Update(ctx, cur); err != nil {
				return err
			}
			sent = cur
			return nil
		})
		report.record(e.metrics, t.ID, err)
		if err != nil {
			continue
		}
		e.emit(ctx, sent.UserID, notify.TrialExpiring{
			SubscriptionID: sent.ID,
			DaysRemaining:  sent.DaysRemaining(now),
		})
	}
	return report, nil
}

// RenewDue renews every record due within the renewal window.
func (e *Engine) RenewDue(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepRenewal}
	due, err := e.GetSubscriptionsDueForRenewal(ctx)
	if err != nil {
		return report, err
	}
	for _, s := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := e.ProcessSubscriptionRenewal(ctx, s)
		report.record(e.metrics, s.ID, err)
		if err != nil && !errors.Is(err, ErrAlreadyRenewed) && !errors.Is(err, ErrPaymentOutstanding) {
			e.log.WarnContext(ctx, "renewal failed", logger.SubscriptionID(s.ID), logger.Error(err))
		}
	}
	e.log.InfoContext(ctx, "renewal sweep finished",
		logger.Count("processed", len(report.Processed)),
		logger.Count("skipped", len(report.Skipped)),
		logger.Count("failed", len(report.Failed)),
	)
	return report, nil
}

// ExpireDue expires every active record whose end date has passed.
// Auto-renewing records inside the renewal window are left to RenewDue.
func (e *Engine) ExpireDue(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Sweep: SweepExpiry}
	expired, err := e.GetExpiredSubscriptions(ctx)
	if err != nil {
		return report, err
	}
	for _, s := range expired {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := e.ExpireSubscription(ctx, s.ID, ReasonPeriodEnd)
		report.record(e.metrics, s.ID, err)
		if err != nil {
			e.log.WarnContext(ctx, "expiry failed", logger.SubscriptionID(s.ID), logger.Error(err))
		}
	}
	e.log.InfoContext(ctx, "expiry sweep finished",
		logger.Count("processed", len(report.Processed)),
		logger.Count("failed", len(report.Failed)),
	)
	return report, nil
}

package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrymomot/hostelkit/svc/billing"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

// Kind classifies a gateway delivery.
type Kind string

const (
	KindCaptured Kind = "captured"
	KindFailed   Kind = "failed"
	KindIgnored  Kind = "ignored"
)

// Notification is a verified delivery in gateway-neutral form.
type Notification struct {
	Kind      Kind
	Event     string
	OrderID   string
	PaymentID string
	Amount    billing.Money
	Method    string
	Reason    string
	// Intent is decoded from the metadata this system attached to the order.
	// It is nil for ignored deliveries.
	Intent Intent
}

// Intent describes what an order was created for. The set of implementations
// is closed: SubscriptionIntent, AddonIntent and TenantChargeIntent.
type Intent interface {
	UserID() string
	intent()
}

// SubscriptionIntent buys or renews a plan.
type SubscriptionIntent struct {
	User     string
	PlanID   string
	Beds     int
	Branches int
	Cycle    subscription.Cycle
}

func (i SubscriptionIntent) UserID() string { return i.User }

func (SubscriptionIntent) intent() {}

// AddonIntent extends the contracted capacity of the live subscription.
type AddonIntent struct {
	User          string
	ExtraBeds     int
	ExtraBranches int
}

func (i AddonIntent) UserID() string { return i.User }

func (AddonIntent) intent() {}

// ChargeKind is the purpose of a payment a tenant makes to an owner.
type ChargeKind string

const (
	ChargeDonation ChargeKind = "donation"
	ChargeFee      ChargeKind = "fee"
	ChargePenalty  ChargeKind = "penalty"
	ChargeRent     ChargeKind = "rent"
)

// TenantChargeIntent is a payment between a tenant and an owner. It shares
// the gateway account but never touches billing.
type TenantChargeIntent struct {
	User       string
	Kind       ChargeKind
	TenantID   string
	PropertyID string
}

func (i TenantChargeIntent) UserID() string { return i.User }

func (TenantChargeIntent) intent() {}

// Order note keys written when this system creates a gateway order.
const (
	NoteUserID        = "userId"
	NotePlanID        = "subscriptionPlanId"
	NoteBeds          = "bedCount"
	NoteBranches      = "branchCount"
	NoteCycle         = "billingCycle"
	NotePurpose       = "purpose"
	NoteExtraBeds     = "extraBeds"
	NoteExtraBranches = "extraBranches"
	NoteTenantID      = "tenantId"
	NotePropertyID    = "propertyId"
	NoteOrderID       = "orderId"
)

const (
	purposeSubscription = "subscription"
	purposeAddon        = "addon"
)

// Notes is the flattened order metadata.
type Notes map[string]string

// ParseIntent decodes n. A missing purpose means a subscription payment.
func ParseIntent(n Notes) (Intent, error) {
	user := strings.TrimSpace(n[NoteUserID])
	if user == "" {
		return nil, ErrMissingMetadata.Withf("order notes carry no %s", NoteUserID)
	}

	purpose := strings.ToLower(strings.TrimSpace(n[NotePurpose]))
	switch purpose {
	case "", purposeSubscription:
		beds, err := n.int(NoteBeds)
		if err != nil {
			return nil, err
		}
		branches, err := n.int(NoteBranches)
		if err != nil {
			return nil, err
		}
		in := SubscriptionIntent{
			User:     user,
			PlanID:   strings.TrimSpace(n[NotePlanID]),
			Beds:     beds,
			Branches: branches,
			Cycle:    subscription.Cycle(strings.ToLower(strings.TrimSpace(n[NoteCycle]))),
		}
		if in.PlanID == "" {
			return nil, ErrMissingMetadata.Withf("order notes carry no %s", NotePlanID)
		}
		return in, nil

	case purposeAddon:
		beds, err := n.int(NoteExtraBeds)
		if err != nil {
			return nil, err
		}
		branches, err := n.int(NoteExtraBranches)
		if err != nil {
			return nil, err
		}
		if beds <= 0 && branches <= 0 {
			return nil, ErrMissingMetadata.Withf("addon order adds nothing")
		}
		return AddonIntent{User: user, ExtraBeds: beds, ExtraBranches: branches}, nil

	case string(ChargeDonation), string(ChargeFee), string(ChargePenalty), string(ChargeRent):
		return TenantChargeIntent{
			User:       user,
			Kind:       ChargeKind(purpose),
			TenantID:   n[NoteTenantID],
			PropertyID: n[NotePropertyID],
		}, nil
	}
	return nil, ErrMissingMetadata.Withf("unknown order purpose %q", purpose)
}

func (n Notes) int(key string) (int, error) {
	v := strings.TrimSpace(n[key])
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, ErrMissingMetadata.Withf("order note %s is not a count: %q", key, v)
	}
	return i, nil
}

// notesFrom flattens decoded JSON metadata. Gateways send numbers and
// strings interchangeably.
func notesFrom(m map[string]any) Notes {
	out := make(Notes, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// merge fills keys missing from n with values from o.
func (n Notes) merge(o Notes) Notes {
	for k, v := range o {
		if _, ok := n[k]; !ok {
			n[k] = v
		}
	}
	return n
}

// Application converts a captured subscription or addon payment into the
// engine's input.
func (n Notification) Application(gateway string) (subscription.PaymentApplication, bool) {
	app := subscription.PaymentApplication{
		Gateway:   gateway,
		OrderID:   n.OrderID,
		PaymentID: n.PaymentID,
		Amount:    n.Amount,
		Method:    n.Method,
	}
	switch in := n.Intent.(type) {
	case SubscriptionIntent:
		app.UserID = in.User
		app.PlanID = in.PlanID
		app.Beds = in.Beds
		app.Branches = in.Branches
		app.Cycle = in.Cycle
	case AddonIntent:
		app.UserID = in.User
		app.AddBeds = in.ExtraBeds
		app.AddBranches = in.ExtraBranches
	default:
		return app, false
	}
	return app, true
}

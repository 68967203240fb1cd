package payment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/svc/payment"
	"github.com/dmitrymomot/hostelkit/svc/subscription"
)

func TestParseIntent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		notes   payment.Notes
		want    payment.Intent
		wantErr error
	}{
		{
			name:  "subscription",
			notes: payment.Notes{"userId": "u1", "subscriptionPlanId": "p1", "bedCount": "25", "branchCount": "2", "billingCycle": "Annual"},
			want:  payment.SubscriptionIntent{User: "u1", PlanID: "p1", Beds: 25, Branches: 2, Cycle: subscription.CycleAnnual},
		},
		{
			name:  "subscription with defaults",
			notes: payment.Notes{"userId": "u1", "subscriptionPlanId": "p1"},
			want:  payment.SubscriptionIntent{User: "u1", PlanID: "p1"},
		},
		{
			name:  "addon",
			notes: payment.Notes{"userId": "u1", "purpose": "addon", "extraBeds": "5"},
			want:  payment.AddonIntent{User: "u1", ExtraBeds: 5},
		},
		{
			name:  "tenant rent",
			notes: payment.Notes{"userId": "u1", "purpose": "rent", "tenantId": "t1", "propertyId": "pr1"},
			want:  payment.TenantChargeIntent{User: "u1", Kind: payment.ChargeRent, TenantID: "t1", PropertyID: "pr1"},
		},
		{name: "missing user", notes: payment.Notes{"subscriptionPlanId": "p1"}, wantErr: payment.ErrMissingMetadata},
		{name: "missing plan", notes: payment.Notes{"userId": "u1"}, wantErr: payment.ErrMissingMetadata},
		{name: "bad count", notes: payment.Notes{"userId": "u1", "subscriptionPlanId": "p1", "bedCount": "ten"}, wantErr: payment.ErrMissingMetadata},
		{name: "negative count", notes: payment.Notes{"userId": "u1", "subscriptionPlanId": "p1", "bedCount": "-1"}, wantErr: payment.ErrMissingMetadata},
		{name: "empty addon", notes: payment.Notes{"userId": "u1", "purpose": "addon"}, wantErr: payment.ErrMissingMetadata},
		{name: "unknown purpose", notes: payment.Notes{"userId": "u1", "purpose": "gift"}, wantErr: payment.ErrMissingMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := payment.ParseIntent(tt.notes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "u1", got.UserID())
		})
	}
}

func TestNotificationApplication(t *testing.T) {
	t.Parallel()

	n := payment.Notification{
		Kind:      payment.KindCaptured,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Method:    "upi",
		Intent:    payment.AddonIntent{User: "u1", ExtraBeds: 3, ExtraBranches: 1},
	}
	app, ok := n.Application("razorpay")
	require.True(t, ok)
	assert.Equal(t, "u1", app.UserID)
	assert.Equal(t, "razorpay", app.Gateway)
	assert.Equal(t, 3, app.AddBeds)
	assert.Equal(t, 1, app.AddBranches)
	assert.Equal(t, subscription.PaymentKey{OrderID: "order_1", PaymentID: "pay_1"}, app.Key())

	n.Intent = payment.TenantChargeIntent{User: "u1", Kind: payment.ChargeFee}
	_, ok = n.Application("razorpay")
	assert.False(t, ok)
}

package logger

import (
	"log/slog"
	"time"
)

// Error records err under the key "error". Nil errors produce an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the account owner under the key "user_id".
func UserID(id string) slog.Attr { return optional("user_id", id) }

// PlanID records a plan identifier under the key "plan_id".
func PlanID(id string) slog.Attr { return optional("plan_id", id) }

// SubscriptionID records a subscription identifier under the key "subscription_id".
func SubscriptionID(id string) slog.Attr { return optional("subscription_id", id) }

// PropertyID records a property identifier under the key "property_id".
func PropertyID(id string) slog.Attr { return optional("property_id", id) }

// Gateway records the payment gateway name under the key "gateway".
func Gateway(name string) slog.Attr { return optional("gateway", name) }

// OrderID records a gateway order identifier under the key "order_id".
func OrderID(id string) slog.Attr { return optional("order_id", id) }

// PaymentID records a gateway payment identifier under the key "payment_id".
func PaymentID(id string) slog.Attr { return optional("payment_id", id) }

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr { return optional("request_id", id) }

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Count records a processed-items count under the given key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

func optional(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}

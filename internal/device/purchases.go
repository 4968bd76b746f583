package device

import "context"

// PurchaseKind is the kind of purchase-provider callback.
type PurchaseKind int

const (
	PurchaseCompleted PurchaseKind = iota
	PurchaseRestored
	SubscriptionChanged
)

func (k PurchaseKind) String() string {
	switch k {
	case PurchaseCompleted:
		return "purchase_completed"
	case PurchaseRestored:
		return "purchase_restored"
	case SubscriptionChanged:
		return "subscription_changed"
	default:
		return "unknown"
	}
}

// PurchaseEvent is the purchase provider's view of the entitlement.
type PurchaseEvent struct {
	Kind PurchaseKind
	// Restored is the number of purchases found by a restore.
	Restored int
	// Active is the subscription state for SubscriptionChanged.
	Active bool
}

// Purchased is a completed purchase.
func Purchased() PurchaseEvent {
	return PurchaseEvent{Kind: PurchaseCompleted}
}

// Restored is the result of restoring purchases.
func Restored(count int) PurchaseEvent {
	return PurchaseEvent{Kind: PurchaseRestored, Restored: count}
}

// SubscriptionStatus is a subscription status change.
func SubscriptionStatus(active bool) PurchaseEvent {
	return PurchaseEvent{Kind: SubscriptionChanged, Active: active}
}

// Entitled reports whether the provider considers the device premium.
func (e PurchaseEvent) Entitled() bool {
	switch e.Kind {
	case PurchaseCompleted:
		return true
	case PurchaseRestored:
		return e.Restored > 0
	case SubscriptionChanged:
		return e.Active
	default:
		return false
	}
}

// ApplyPurchase overwrites the entitlement flag with the provider's view,
// regardless of what the server last reported.
func (s *Store) ApplyPurchase(ctx context.Context, ev PurchaseEvent) error {
	s.logger.Info("purchase event", "kind", ev.Kind.String(), "entitled", ev.Entitled())
	return s.SetPremium(ctx, ev.Entitled())
}

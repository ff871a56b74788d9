package services

import (
	"math/rand"
	"sync"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/views"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/observability"
	"go.uber.org/zap"
)

// OrderMutator corrupts a fraction of incoming orders so the fraud rules
// have something to flag. Demo harness only.
type OrderMutator interface {
	// Mutate decides pseudo-randomly per order whether to corrupt it.
	// probability is a percentage, 0-100; at 0 the input is returned
	// unchanged, at 100 a corrupted copy is always returned. The input
	// order is never modified in place.
	Mutate(order views.Order, probability int) views.Order
}

// Corruption factors. Large enough to trip the quantity and value rules.
const (
	mutationQuantityFactor = 37
	mutationAmountFactor   = 25
	mutationCountry        = "MD"
	mutationCountryAlt     = "KP"
)

type OrderMutatorImpl struct {
	logger *zap.Logger
	mu     sync.Mutex // rand.Rand is not safe for concurrent use
	rng    *rand.Rand
}

func NewOrderMutator(logger *zap.Logger, seed int64) OrderMutator {
	return &OrderMutatorImpl{
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (m *OrderMutatorImpl) Mutate(order views.Order, probability int) views.Order {
	if probability <= 0 {
		return order
	}
	if probability > 100 {
		probability = 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng.Intn(100) >= probability {
		return order
	}

	mutated := order.Clone()
	mutation := m.apply(&mutated)

	m.logger.Debug("order mutated",
		zap.String(pkg.OrderId, order.OrderId),
		zap.String("mutation", mutation))
	observability.MutationsApplied.WithLabelValues(mutation).Inc()
	return mutated
}

// apply picks one corruption and guarantees at least one tracked field
// changes. Caller holds m.mu.
func (m *OrderMutatorImpl) apply(order *views.Order) string {
	choice := m.rng.Intn(4)
	if choice == 0 && len(order.Items) == 0 {
		choice = 1
	}

	switch choice {
	case 0:
		// fat-finger a line quantity
		i := m.rng.Intn(len(order.Items))
		if order.Items[i].Quantity <= 0 {
			order.Items[i].Quantity = mutationQuantityFactor
		} else {
			order.Items[i].Quantity *= mutationQuantityFactor
		}
		return "inflate_quantity"
	case 1:
		order.TotalAmount = order.TotalAmount*mutationAmountFactor + 0.99
		return "inflate_total"
	case 2:
		if order.ShippingAddress.Country == mutationCountry {
			order.ShippingAddress.Country = mutationCountryAlt
		} else {
			order.ShippingAddress.Country = mutationCountry
		}
		return "swap_shipping_country"
	default:
		if order.BillingAddress.Country == "" {
			order.BillingAddress.Country = mutationCountryAlt
		} else {
			order.BillingAddress.Country = ""
		}
		return "strip_billing_country"
	}
}

package views

import (
	"time"

	"github.com/astroshop/fraud-detection/pkg"
)

// OrderItem is a single purchased line.
type OrderItem struct {
	ProductId   string  `json:"productId" validate:"required"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

type Address struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	ZipCode       string `json:"zipCode"`
}

// Order is the wire model for an order-completion event pulled from the
// stream. Field names match the storefront checkout payload.
type Order struct {
	OrderId         string      `json:"orderId" validate:"required"`
	Items           []OrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address     `json:"shippingAddress"`
	BillingAddress  Address     `json:"billingAddress"`
	TotalAmount     float64     `json:"totalAmount" validate:"gte=0"`
	CurrencyCode    string      `json:"currencyCode" validate:"required"`
	StoreLocation   string      `json:"storeLocation"`
	TerminalId      string      `json:"terminalId"`
	PlacedAt        time.Time   `json:"placedAt"`
}

// Clone returns a deep copy. The mutator works on copies so the decoded
// order is never modified in place.
func (o Order) Clone() Order {
	c := o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return c
}

// LineTotal sums quantity * unitPrice across items.
func (o Order) LineTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

// MaxItemQuantity returns the largest line quantity, 0 for no items.
func (o Order) MaxItemQuantity() int {
	max := 0
	for _, item := range o.Items {
		if item.Quantity > max {
			max = item.Quantity
		}
	}
	return max
}

// AlertStats aggregates fraud alerts over a trailing window.
type AlertStats struct {
	WindowHours   int
	Total         int64
	BySeverity    map[pkg.Severity]int64
	MeanRiskScore float64
}

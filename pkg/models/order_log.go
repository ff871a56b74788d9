package models

import "time"

// OrderLogEntry maps to table `order_log`. Entries are append-only: written
// once per consumed message, never updated, deleted only by retention pruning.
type OrderLogEntry struct {
	ID              int64
	OrderId         string
	CurrencyCode    string
	TotalAmount     float64
	ShippingCountry string
	BillingCountry  string
	ItemCount       int
	MaxItemQuantity int
	StoreLocation   string
	Payload         []byte // raw order snapshot, jsonb
	IngestedAt      time.Time
}

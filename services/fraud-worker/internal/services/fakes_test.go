package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/models"
	"github.com/astroshop/fraud-detection/pkg/views"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// fakeOrderLogRepo is an in-memory stand-in for the Postgres-backed order
// log. It mirrors the store's documented semantics: append-only inserts, no
// dedup by orderId, deletion strictly older than the cutoff.
type fakeOrderLogRepo struct {
	mu        sync.Mutex
	entries   []models.OrderLogEntry
	saveErrOn map[string]error // orderId -> error to return
	cutoffs   []time.Time
}

func newFakeOrderLogRepo() *fakeOrderLogRepo {
	return &fakeOrderLogRepo{saveErrOn: make(map[string]error)}
}

func (f *fakeOrderLogRepo) SaveOrder(_ context.Context, order views.Order, ingestedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErrOn[order.OrderId]; err != nil {
		return false, err
	}
	f.entries = append(f.entries, models.OrderLogEntry{
		ID:              int64(len(f.entries) + 1),
		OrderId:         order.OrderId,
		CurrencyCode:    order.CurrencyCode,
		TotalAmount:     order.TotalAmount,
		ShippingCountry: order.ShippingAddress.Country,
		BillingCountry:  order.BillingAddress.Country,
		ItemCount:       len(order.Items),
		MaxItemQuantity: order.MaxItemQuantity(),
		StoreLocation:   order.StoreLocation,
		IngestedAt:      ingestedAt,
	})
	return true, nil
}

func (f *fakeOrderLogRepo) CountSince(_ context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, e := range f.entries {
		if !e.IngestedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeOrderLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	kept := f.entries[:0]
	var deleted int64
	for _, e := range f.entries {
		if e.IngestedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func (f *fakeOrderLogRepo) SlowScan(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeOrderLogRepo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeAlertRepo mirrors the fraud_alerts store.
type fakeAlertRepo struct {
	mu        sync.Mutex
	alerts    []models.FraudAlert
	insertErr error
	deleteErr error
	cutoffs   []time.Time
}

func (f *fakeAlertRepo) Insert(_ context.Context, alert models.FraudAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertRepo) StatsSince(_ context.Context, since time.Time) (views.AlertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := views.AlertStats{BySeverity: make(map[pkg.Severity]int64)}
	var scoreSum float64
	for _, a := range f.alerts {
		if a.CreatedAt.Before(since) {
			continue
		}
		stats.BySeverity[a.Severity]++
		stats.Total++
		scoreSum += a.RiskScore
	}
	if stats.Total > 0 {
		stats.MeanRiskScore = scoreSum / float64(stats.Total)
	}
	return stats, nil
}

func (f *fakeAlertRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.alerts[:0]
	var deleted int64
	for _, a := range f.alerts {
		if a.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	f.alerts = kept
	return deleted, nil
}

func (f *fakeAlertRepo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

// fakePoller feeds pre-built messages to the consumer loop.
type fakePoller struct {
	mu        sync.Mutex
	queue     []*kafka.Message
	committed int
	closed    bool
}

func (f *fakePoller) Poll(ctx context.Context, max int) ([]*kafka.Message, error) {
	f.mu.Lock()
	n := max
	if n > len(f.queue) {
		n = len(f.queue)
	}
	batch := f.queue[:n]
	f.queue = f.queue[n:]
	f.mu.Unlock()

	if len(batch) == 0 {
		// emulate the bounded poll wait so the loop does not spin
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Millisecond):
		}
	}
	return batch, nil
}

func (f *fakePoller) Commit(_ *kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed++
	return nil
}

func (f *fakePoller) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePoller) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed
}

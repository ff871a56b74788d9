package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/database"
	"github.com/astroshop/fraud-detection/pkg/views"
	"go.uber.org/zap"
)

type OrderLogRepository interface {
	// SaveOrder persists a snapshot of the order. Returns false (not an
	// error) when the row was rejected by a constraint; infrastructure
	// errors propagate to the caller.
	SaveOrder(ctx context.Context, order views.Order, ingestedAt time.Time) (bool, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// DeleteOlderThan removes entries with ingested_at strictly before the
	// cutoff and returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// SlowScan performs an unindexed full scan over the jsonb payloads.
	// Exists only for the bad-query demo injector.
	SlowScan(ctx context.Context, term string) (int64, error)
}

type OrderLogRepositoryImpl struct {
	logger *zap.Logger
	db     *database.DB
}

func NewOrderLogRepository(logger *zap.Logger, db *database.DB) OrderLogRepository {
	return &OrderLogRepositoryImpl{logger: logger, db: db}
}

func (r *OrderLogRepositoryImpl) SaveOrder(ctx context.Context, order views.Order, ingestedAt time.Time) (bool, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return false, err
	}

	_, err = r.db.Exec(ctx, `
				INSERT INTO order_log (order_id, currency_code, total_amount, shipping_country, billing_country,
					item_count, max_item_quantity, store_location, payload, ingested_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.OrderId,
		order.CurrencyCode,
		order.TotalAmount,
		order.ShippingAddress.Country,
		order.BillingAddress.Country,
		len(order.Items),
		order.MaxItemQuantity(),
		order.StoreLocation,
		payload,
		ingestedAt,
	)
	if err != nil {
		mapped := pkg.HandleSQLError(r.logger, err)
		if pkg.IsDuplicate(mapped) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

func (r *OrderLogRepositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM order_log WHERE ingested_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, pkg.HandleSQLError(r.logger, err)
	}
	return count, nil
}

func (r *OrderLogRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM order_log WHERE ingested_at < $1`, cutoff)
	if err != nil {
		return 0, pkg.HandleSQLError(r.logger, err)
	}
	return tag.RowsAffected(), nil
}

func (r *OrderLogRepositoryImpl) SlowScan(ctx context.Context, term string) (int64, error) {
	// payload::text defeats the jsonb index path on purpose
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM order_log WHERE payload::text ILIKE '%' || $1 || '%'`, term,
	).Scan(&count)
	if err != nil {
		return 0, pkg.HandleSQLError(r.logger, err)
	}
	return count, nil
}

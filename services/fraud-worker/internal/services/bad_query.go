package services

import (
	"context"
	"math/rand"
	"sync"

	"github.com/astroshop/fraud-detection/pkg/repositories"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/observability"
	"go.uber.org/zap"
)

// BadQueryInjector occasionally issues a deliberately inefficient read
// against the order log, purely to generate slow-query telemetry for the
// observability demo. Never on the correctness path.
type BadQueryInjector interface {
	// MaybeExecuteBadQuery fires with the given percentage probability and
	// reports whether it did. Query failures are logged and swallowed.
	MaybeExecuteBadQuery(ctx context.Context, percentage int) bool
}

// Search terms that show up in realistic payloads, so the scan does real work.
var badQueryTerms = []string{"telescope", "binoculars", "tripod", "compass"}

type BadQueryInjectorImpl struct {
	logger       *zap.Logger
	orderLogRepo repositories.OrderLogRepository
	mu           sync.Mutex
	rng          *rand.Rand
}

func NewBadQueryInjector(logger *zap.Logger, orderLogRepo repositories.OrderLogRepository, seed int64) BadQueryInjector {
	return &BadQueryInjectorImpl{
		logger:       logger,
		orderLogRepo: orderLogRepo,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func (b *BadQueryInjectorImpl) MaybeExecuteBadQuery(ctx context.Context, percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage > 100 {
		percentage = 100
	}

	b.mu.Lock()
	fire := b.rng.Intn(100) < percentage
	term := badQueryTerms[b.rng.Intn(len(badQueryTerms))]
	b.mu.Unlock()
	if !fire {
		return false
	}

	observability.BadQueriesFired.Inc()
	matched, err := b.orderLogRepo.SlowScan(ctx, term)
	if err != nil {
		b.logger.Warn("bad demo query failed", zap.String("term", term), zap.Error(err))
		return true
	}
	b.logger.Info("bad demo query executed", zap.String("term", term), zap.Int64("matched", matched))
	return true
}

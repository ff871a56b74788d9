package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/astroshop/fraud-detection/pkg"
	"github.com/astroshop/fraud-detection/pkg/flags"
	"github.com/astroshop/fraud-detection/pkg/repositories"
	"github.com/astroshop/fraud-detection/pkg/views"
	"github.com/astroshop/fraud-detection/services/fraud-worker/configs"
	"github.com/astroshop/fraud-detection/services/fraud-worker/internal/observability"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OrderConsumer is the single consumer loop: poll a batch, decode each
// message, maybe mutate, persist, analyze, maybe issue a demo query, commit.
// One bad message never halts the stream.
type OrderConsumer interface {
	Start() func()
}

// statsReportEvery controls the running-total and alert-stats log cadence.
const statsReportEvery = 100

type OrderConsumerConfig struct {
	Context      context.Context
	Logger       *zap.Logger
	Config       *configs.Config
	Poller       BatchPoller
	Flags        flags.Provider
	Mutator      OrderMutator
	Engine       FraudAnalyticsEngine
	Injector     BadQueryInjector
	OrderLogRepo repositories.OrderLogRepository

	// internal initialization
	validate  *validator.Validate
	throttle  *rate.Limiter
	processed int64
}

// NewOrderConsumer wires the consumer pipeline. The throttle only engages
// while the queue-problems flag is active, draining roughly one message per
// second to simulate backpressure.
func NewOrderConsumer(cfg OrderConsumerConfig) OrderConsumer {
	cfg.validate = validator.New()
	cfg.throttle = rate.NewLimiter(rate.Every(time.Second), 1)
	return &cfg
}

// Start launches the consumer loop and returns a closer. The closer expects
// the parent context to be cancelled first; it waits for the loop to drain
// and closes the poller.
func (k *OrderConsumerConfig) Start() func() {
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-k.Context.Done():
				return
			default:
			}

			msgs, err := k.Poller.Poll(k.Context, k.Config.PollBatchSize)
			if err != nil {
				k.Logger.Error("failed to poll order batch", zap.Error(err))
				continue
			}
			for _, msg := range msgs {
				k.processMessage(msg)
			}
		}
	}()

	return func() {
		<-done
		if err := k.Poller.Close(); err != nil {
			k.Logger.Error("failed to close order poller", zap.Error(err))
			return
		}
		k.Logger.Info("order consumer closed successfully")
	}
}

// processMessage handles one message end to end. Failures beyond decode are
// logged and the loop moves on: at-least-once delivery means redelivery is
// acceptable and a poison message must not wedge the partition.
func (k *OrderConsumerConfig) processMessage(msg *kafka.Message) {
	start := time.Now()
	topic := k.Config.KafkaOrderTopic
	observability.MessagesReceived.WithLabelValues(topic).Inc()

	// decode
	var order views.Order
	if err := json.Unmarshal(msg.Value, &order); err != nil {
		k.Logger.Error("failed to decode order message, dropping", zap.Error(err))
		observability.DecodeFailures.WithLabelValues(topic).Inc()
		k.commit(msg)
		return
	}
	if err := k.validate.Struct(&order); err != nil {
		k.Logger.Error("order failed validation, dropping",
			zap.String(pkg.OrderId, order.OrderId), zap.Error(err))
		observability.DecodeFailures.WithLabelValues(topic).Inc()
		k.commit(msg)
		return
	}

	// backpressure simulation, flag-driven
	if k.Flags.Evaluate(k.Context, pkg.FlagQueueProblems) > 0 {
		k.Logger.Debug("queue problems flag active, throttling",
			zap.String(pkg.OrderId, order.OrderId))
		_ = k.throttle.Wait(k.Context)
	}

	// maybe corrupt the order to synthesize fraud signals
	mutationPct := k.Flags.Evaluate(k.Context, pkg.FlagMutationPercentage)
	order = k.Mutator.Mutate(order, mutationPct)

	// persist
	saved, err := k.OrderLogRepo.SaveOrder(k.Context, order, time.Now().UTC())
	if err != nil {
		k.Logger.Error("failed to persist order, continuing",
			zap.String(pkg.OrderId, order.OrderId), zap.Error(err))
		k.commit(msg)
		return
	}
	if !saved {
		k.Logger.Warn("order snapshot rejected by store",
			zap.String(pkg.OrderId, order.OrderId))
		observability.SavesRejected.Inc()
	} else {
		observability.OrdersPersisted.Inc()
	}

	// fraud analytics
	if k.Flags.Evaluate(k.Context, pkg.FlagFraudDetection) > 0 {
		alert, err := k.Engine.AnalyzeOrder(k.Context, order)
		if err != nil {
			k.Logger.Error("fraud analysis failed, continuing",
				zap.String(pkg.OrderId, order.OrderId), zap.Error(err))
		} else if alert != nil {
			k.Logger.Warn("fraud alert raised",
				zap.String(pkg.OrderId, alert.OrderId),
				zap.String("severity", string(alert.Severity)),
				zap.Float64(pkg.RiskScore, alert.RiskScore),
				zap.String("reason", alert.Reason))
		}
	}

	// observability demo: occasionally hit the store with a slow query
	if badQueryPct := k.Flags.Evaluate(k.Context, pkg.FlagBadQueryPercentage); badQueryPct > 0 {
		k.Injector.MaybeExecuteBadQuery(k.Context, badQueryPct)
	}

	k.commit(msg)
	observability.ProcessLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	k.processed++
	if k.processed%statsReportEvery == 0 {
		k.reportStats()
	}
}

func (k *OrderConsumerConfig) commit(msg *kafka.Message) {
	if err := k.Poller.Commit(msg); err != nil {
		k.Logger.Error("failed to commit offset", zap.Error(err))
	}
}

func (k *OrderConsumerConfig) reportStats() {
	k.Logger.Info("orders processed", zap.Int64("total", k.processed))

	stats, err := k.Engine.GetAlertStats(k.Context, 24)
	if err != nil {
		k.Logger.Error("failed to compute alert stats", zap.Error(err))
		return
	}
	k.Logger.Info("fraud alert stats",
		zap.Int("window_hours", stats.WindowHours),
		zap.Int64("alerts", stats.Total),
		zap.Any("by_severity", stats.BySeverity),
		zap.Float64("mean_risk_score", stats.MeanRiskScore))
}

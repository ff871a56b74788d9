package configs

import (
	"time"

	"github.com/astroshop/fraud-detection/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for fraud-worker.
type Config struct {
	MetricsAddr          string        `mapstructure:"METRICS_ADDR" validate:"required"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS" validate:"required"`
	KafkaOrderTopic      string        `mapstructure:"KAFKA_ORDER_TOPIC" validate:"required"`
	KafkaConsumerGroup   string        `mapstructure:"KAFKA_CONSUMER_GROUP" validate:"required"`
	PrimaryDbAddr        string        `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	MaxDbCons            int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons            int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"` // optional: flags default to disabled without it
	RetentionDays        int           `mapstructure:"RETENTION_DAYS" validate:"min=1"`
	CleanupIntervalHours int           `mapstructure:"CLEANUP_INTERVAL_HOURS" validate:"min=1"`
	PollTimeout          time.Duration `mapstructure:"POLL_TIMEOUT" validate:"required"`
	PollBatchSize        int           `mapstructure:"POLL_BATCH_SIZE" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("METRICS_ADDR", ":2112")
	viper.SetDefault("KAFKA_ORDER_TOPIC", "orders")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "fraud-worker")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("RETENTION_DAYS", "7")
	viper.SetDefault("CLEANUP_INTERVAL_HOURS", "24")
	viper.SetDefault("POLL_TIMEOUT", "100ms")
	viper.SetDefault("POLL_BATCH_SIZE", "10")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running_in_test_mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running_in_development_mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/fraud-worker/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}

	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

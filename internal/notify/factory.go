package notify

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cimillas/hut-booking/internal/config"
)

// NewPublisher builds the publisher selected by cfg.Driver.
func NewPublisher(cfg config.NotifyConfig, logger logrus.FieldLogger) (Publisher, error) {
	switch cfg.Driver {
	case config.DriverLog, "":
		return NewLogPublisher(logger), nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisPublisher(client, cfg.Redis.Stream, cfg.Redis.MaxLen), nil
	case config.DriverKafka:
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case config.DriverAMQP:
		p, err := NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
}

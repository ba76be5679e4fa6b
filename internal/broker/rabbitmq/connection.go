package rabbitmq

import (
	"github.com/jahatelomain/jahatelo-sub002/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	wbfrabbit "github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

const (
	dispatchExchange = "notification_dispatch"
	dispatchQueue    = "dispatch_ticks"
	dispatchKey      = "dispatch"
	dispatchDLQ      = "dispatch_ticks_dlq"
)

type Broker struct {
	client  *wbfrabbit.RabbitClient
	retries retry.Strategy
}

func NewRabbitMQ(cfg *config.Config, retries retry.Strategy) *Broker {
	rabbitCfg := wbfrabbit.ClientConfig{
		URL:            cfg.RabbitMQDSN(),
		ConnectTimeout: cfg.RabbitMQ.ConnectTimeout,
		Heartbeat:      cfg.RabbitMQ.Heartbeat,
		ProducingStrat: retries,
		ConsumingStrat: retries,
	}
	client, err := wbfrabbit.NewClient(rabbitCfg)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to create RabbitMQ client")
	}
	ch, err := client.GetChannel()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to get channel for declarations")
	}
	defer ch.Close()
	err = ch.ExchangeDeclare(dispatchExchange, "x-delayed-message", true, false, false, false, amqp.Table{"x-delayed-type": "direct"})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to declare exchange")
	}
	_, err = ch.QueueDeclare(dispatchQueue, true, false, false, false, nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to declare queue")
	}
	err = ch.QueueBind(dispatchQueue, dispatchKey, dispatchExchange, false, nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to bind queue")
	}
	_, err = ch.QueueDeclare(dispatchDLQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dispatchExchange,
		"x-dead-letter-routing-key": dispatchKey,
		"x-message-ttl":             1000,
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to declare DLQ")
	}
	return &Broker{client: client, retries: retries}
}

func (b *Broker) Close() error {
	zlog.Logger.Info().Msg("Closing RabbitMQ connection")
	return b.client.Close()
}

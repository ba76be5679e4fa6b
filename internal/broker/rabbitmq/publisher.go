package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/broker"

	amqp "github.com/rabbitmq/amqp091-go"
	wbfrabbit "github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/zlog"
)

var _ broker.DispatchScheduler = (*Broker)(nil)

type dispatchTick struct {
	ID string `json:"id"`
}

// PublishDispatchTick enqueues a dispatch trigger held back by the delayed
// exchange until the notification's quantized send time.
func (b *Broker) PublishDispatchTick(ctx context.Context, id string, delay time.Duration) error {
	body, err := json.Marshal(dispatchTick{ID: id})
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to marshal dispatch tick")
		return err
	}

	delayMs := int(delay.Milliseconds())
	if delayMs < 0 {
		delayMs = 0
	}
	headers := amqp.Table{"x-delay": delayMs}

	zlog.Logger.Info().Str("id", id).Int("delay_ms", delayMs).Msg("Publishing dispatch tick")

	publisher := wbfrabbit.NewPublisher(b.client, dispatchExchange, "application/json")
	return publisher.Publish(ctx, body, dispatchKey, wbfrabbit.WithHeaders(headers))
}

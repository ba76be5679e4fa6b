package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/retry"
)

// ConsumeTicks opens a delivery stream on the dispatch tick queue. Ticks are
// acked by the worker only after the dispatcher has run, so an interrupted
// process redelivers them.
func (b *Broker) ConsumeTicks(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := retry.DoContext(ctx, b.retries, func() error {
		ch, err := b.client.GetChannel()
		if err != nil {
			return err
		}
		defer ch.Close()
		deliveries, err = ch.Consume(dispatchQueue, "", false, false, false, false, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

type ProcessFunc func(ctx context.Context, notificationID string) error

// Worker drains dispatch ticks and hands each notification id to the
// dispatcher. Only transient failures are Nacked for DLQ redelivery; a tick
// that can never succeed (malformed body, unknown id) is acked away, since
// redelivering it would loop through the DLQ forever. The claim inside the
// dispatcher keeps redeliveries from double-sending.
type Worker struct {
	broker      *Broker
	processFunc ProcessFunc
	done        chan struct{}
}

func NewWorker(broker *Broker, processFunc ProcessFunc) *Worker {
	return &Worker{
		broker:      broker,
		processFunc: processFunc,
		done:        make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	zlog.Logger.Info().Msg("Starting dispatch tick worker")
	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("Worker context cancelled")
			return
		case <-w.done:
			zlog.Logger.Info().Msg("Worker stopped")
			return
		default:
			w.processMessages(ctx)
			time.Sleep(5 * time.Second)
		}
	}
}

func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) processMessages(ctx context.Context) {
	deliveries, err := w.broker.ConsumeTicks(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to consume dispatch ticks")
		return
	}
	for delivery := range deliveries {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
			w.handleDelivery(ctx, delivery)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var tick dispatchTick
	if err := json.Unmarshal(delivery.Body, &tick); err != nil {
		zlog.Logger.Error().Err(err).Msg("Dropping malformed dispatch tick")
		delivery.Ack(false)
		return
	}
	zlog.Logger.Info().Str("id", tick.ID).Msg("Processing dispatch tick")
	err := w.processFunc(ctx, tick.ID)
	switch {
	case err == nil:
		delivery.Ack(false)
	case errors.Is(err, domain.ErrNotFound):
		zlog.Logger.Error().Str("id", tick.ID).Msg("Dropping dispatch tick for unknown notification")
		delivery.Ack(false)
	default:
		zlog.Logger.Error().Err(err).Str("id", tick.ID).Msg("Failed to process dispatch tick")
		delivery.Nack(false, false)
	}
}

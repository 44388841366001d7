package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/utils"
)

// Publisher pushes mapped events into the aggregator
type Publisher interface {
	Publish(ev event.Event, channelName string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	Publisher   Publisher
}

// StartConsumerService starts the queue listener feeding the aggregator.
// Returns channel for tracking if all jobs are finished
func StartConsumerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for raw batches")

	wm := gue.WorkMap{
		messages.RawEvents: createHandler(data, handleBatch),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.RawEvents),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("aggr-consumer"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// createHandler wraps the batch func for gue. Decode failures and
// processing failures are logged but the job is always acked -
// at-least-once delivery without blocking the queue
func createHandler(data *ServiceData, hf func(context.Context, *messages.RawBatch, *ServiceData) error) gue.WorkFunc {
	return func(ctx context.Context, j *gue.Job) error {
		var m messages.RawBatch
		if err := json.Unmarshal(j.Args, &m); err != nil {
			goapp.Log.Error().Err(err).Str("queue", j.Queue).Msg("could not unmarshal batch, dropping")
			return nil
		}
		goapp.Log.Info().Str("queue", j.Queue).Str("server", m.Server).Int("events", len(m.Events)).Msg("got batch")
		if err := hf(ctx, &m, data); err != nil {
			goapp.Log.Error().Err(err).Msg("batch processing failed, dropping")
		}
		return nil
	}
}

func handleBatch(_ context.Context, m *messages.RawBatch, data *ServiceData) error {
	for _, re := range m.Events {
		ev, err := event.MapRaw(re, m.Server)
		if err != nil {
			goapp.Log.Warn().Err(err).Str("server", m.Server).Msg("dropping event")
			continue
		}
		if err := data.Publisher.Publish(ev, messages.ChannelWebhooks); err != nil {
			goapp.Log.Error().Err(err).Str("event", ev.Type()).Msg("can't publish")
		}
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Publisher == nil {
		return fmt.Errorf("no publisher")
	}
	return nil
}

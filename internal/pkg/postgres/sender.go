package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
)

// Sender relays raw webhook batches through the postgres gue queue
type Sender struct {
	gc *gue.Client
}

// NewSender initializes gue sender
func NewSender(pool *pgxpool.Pool) (*Sender, error) {
	gc, err := gue.NewClient(pgxv5.NewConnPool(pool))
	if err != nil {
		return nil, fmt.Errorf("can't init gue: %w", err)
	}
	return &Sender{gc: gc}, nil
}

// SendBatch enqueues one raw batch
func (sender *Sender) SendBatch(ctx context.Context, batch *messages.RawBatch) error {
	goapp.Log.Debug().Str("server", batch.Server).Int("events", len(batch.Events)).Msg("Sending batch")
	args, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("can't marshal batch: %w", err)
	}

	j := &gue.Job{
		Type:  messages.RawEvents,
		Queue: messages.RawEvents,
		Args:  args,
	}
	if err := sender.gc.Enqueue(ctx, j); err != nil {
		return fmt.Errorf("can't send batch to %s: %w", messages.RawEvents, err)
	}
	goapp.Log.Debug().Msg("Sent")
	return nil
}

package messages

const (
	st = "AGGR/"
	// RawEvents queue name for relayed webhook batches
	RawEvents = st + "RawEvents"

	// ChannelWebhooks is the aggregator channel all webhook events go to
	ChannelWebhooks = "webhooks"
)

// RawBatch is one webhook delivery relayed through the queue: the origin
// server plus the undecoded event array
type RawBatch struct {
	Server string           `json:"server"`
	Events []map[string]any `json:"events"`
}

package ports

import "context"

const (
	FeesWithdrawn Topic = "Fees Withdrawn"
)

type Topic string

type Alerts interface {
	Publish(ctx context.Context, topic Topic, message interface{}) error
}

type FeesWithdrawnAlert struct {
	Owner     string
	Amounts   map[string]uint64
	Remaining map[string]uint64
	Timestamp int64
}

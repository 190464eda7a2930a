// Package sink publishes generated walks to external stores.
//
// A [Sink] receives the walks of one w at a time, tagged with the run ID,
// after walk generation finished. [MongoSink] writes one document per walk
// to a MongoDB collection so corpora of many runs can be queried together.
// [Discard] is used when no sink is configured.
package sink

import (
	"context"

	"github.com/matzehuels/mltn2v/pkg/walk"
)

// Batch is the walks generated for one w in one run.
type Batch struct {
	RunID string
	W     float64
	Walks []walk.Walk
}

// Sink consumes walk batches.
type Sink interface {
	Write(ctx context.Context, b Batch) error
	Close(ctx context.Context) error
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(context.Context, Batch) error { return nil }
func (discard) Close(context.Context) error        { return nil }

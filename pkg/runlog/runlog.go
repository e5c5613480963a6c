// Package runlog keeps a history of render runs.
//
// Every pipeline invocation produces one [Run] which is handed to a
// [Recorder]. The CLI appends runs to a JSON lines file next to its cache;
// `starkviz serve` deployments may record into MongoDB instead.
package runlog

import (
	"context"
	"time"

	"github.com/matzehuels/starkviz/pkg/render"
)

// Run kinds.
const (
	KindGeometry = "geometry"
	KindTiles    = "tiles"
)

// Run summarises one pipeline invocation.
type Run struct {
	ID         string       `json:"id" bson:"_id"`
	Kind       string       `json:"kind" bson:"kind"`
	Started    time.Time    `json:"started" bson:"started"`
	DurationMS int64        `json:"duration_ms" bson:"duration_ms"`
	Width      int          `json:"width" bson:"width"`
	Height     int          `json:"height" bson:"height"`
	Partitions int          `json:"partitions" bson:"partitions"`
	Format     string       `json:"format" bson:"format"`
	Output     string       `json:"output,omitempty" bson:"output,omitempty"`
	CacheHit   bool         `json:"cache_hit,omitempty" bson:"cache_hit,omitempty"`
	Stats      render.Stats `json:"stats" bson:"stats"`
	Success    bool         `json:"success" bson:"success"`
	Error      string       `json:"error,omitempty" bson:"error,omitempty"`
}

// Recorder stores runs.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	Close() error
}

// NullRecorder discards every run.
type NullRecorder struct{}

// Record implements Recorder.
func (NullRecorder) Record(context.Context, Run) error { return nil }

// Close implements Recorder.
func (NullRecorder) Close() error { return nil }

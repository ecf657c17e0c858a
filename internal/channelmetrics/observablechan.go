// Package channelmetrics provides a flexible way to wrap Go channels with
// additional metrics collection capabilities. This allows for monitoring
// and tracking of channel usage and performance using different metrics backends.
package channelmetrics

import (
	"time"

	"github.com/callumcurtis/llm-retrieval-stack/internal/common"
	"github.com/callumcurtis/llm-retrieval-stack/internal/context"
)

// MetricsCollector is an interface for collecting metrics. Implementations
// of this interface can be used to record various channel metrics.
type MetricsCollector interface {
	RecordProduceDuration(duration time.Duration)
	RecordConsumeDuration(duration time.Duration)
	RecordChannelLen(size int)
	RecordChannelCap(capacity int)
}

// ObservableChan wraps a Go channel and collects metrics about its usage.
// It supports any type of channel and records metrics using a provided
// MetricsCollector implementation.
type ObservableChan[T any] struct {
	ch      chan T
	metrics MetricsCollector
}

// NewObservableChan creates a new ObservableChan wrapping the provided channel.
// It records the channel's capacity and current length immediately and sets up
// metrics collection using the provided MetricsCollector (a no-op collector
// when nil).
func NewObservableChan[T any](ch chan T, metrics MetricsCollector) *ObservableChan[T] {
	if metrics == nil {
		metrics = noopCollector{}
	}
	oChan := &ObservableChan[T]{
		ch:      ch,
		metrics: metrics,
	}
	oChan.RecordChannelCapacity()
	// Record the current length of the channel.
	// Note: The channel is likely empty, but it may contain items if it
	// was pre-existing.
	oChan.RecordChannelLen()
	return oChan
}

// Close closes the channel and records the current size of the channel buffer.
func (oc *ObservableChan[T]) Close() {
	close(oc.ch)
	oc.RecordChannelLen()
}

// Send sends an item into the channel and records the duration taken to do
// so, along with the resulting channel buffer size. It blocks until the item
// is sent or ctx is done.
func (oc *ObservableChan[T]) Send(ctx context.Context, item T) error {
	defer func(start time.Time) {
		oc.metrics.RecordProduceDuration(time.Since(start))
		oc.RecordChannelLen()
	}(time.Now())

	return common.CancellableWrite(ctx, oc.ch, item)
}

// Recv receives an item from the channel and records the duration taken to do
// so, along with the resulting channel buffer size. It blocks until an item
// is available or ctx is done.
func (oc *ObservableChan[T]) Recv(ctx context.Context) (T, error) {
	defer func(start time.Time) {
		oc.metrics.RecordConsumeDuration(time.Since(start))
		oc.RecordChannelLen()
	}(time.Now())

	return common.CancellableRead(ctx, oc.ch)
}

// RecordChannelCapacity records the capacity of the channel buffer.
func (oc *ObservableChan[T]) RecordChannelCapacity() { oc.metrics.RecordChannelCap(cap(oc.ch)) }

// RecordChannelLen records the current size of the channel buffer.
func (oc *ObservableChan[T]) RecordChannelLen() { oc.metrics.RecordChannelLen(len(oc.ch)) }

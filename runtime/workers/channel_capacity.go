package workers

import (
	"collab-lab/contract"
	"collab-lab/observability"
	"context"
	"log/slog"
	"reflect"
	"time"
)

// saturationThreshold is the fill ratio above which a queue is reported as saturated.
const saturationThreshold = 0.8

var _ contract.Worker = (*ChannelCapacityWorker)(nil)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically publishes the length and capacity of buffered channels.
// Reading len(channel) and cap(channel) is non-blocking, so this won't interfere
// with the goroutines using them.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metrics        *observability.Metrics
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metrics *observability.Metrics, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		channels:       channels,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w ChannelCapacityWorker) sample() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		// Verify if this is a channel
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		capacity := v.Cap()
		length := v.Len()
		w.metrics.QueueLength.WithLabelValues(nc.Name).Set(float64(length))
		w.metrics.QueueCapacity.WithLabelValues(nc.Name).Set(float64(capacity))
		if capacity > 0 && float64(length) >= saturationThreshold*float64(capacity) {
			w.log.Warn("Queue is almost full", "name", nc.Name, "length", length, "capacity", capacity)
		}
	}
}

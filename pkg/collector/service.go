// Package collector decouples the meter drivers from the sinks through a
// bounded queue.
package collector

import (
	"context"
	"errors"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/sink"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

const QueueSize = 1000

type Collector struct {
	queue chan types.Measurement
	sinks []sink.Sink
	done  chan struct{}
	log   zerolog.Logger
}

func New(log zerolog.Logger) *Collector {
	return &Collector{
		queue: make(chan types.Measurement, QueueSize),
		done:  make(chan struct{}),
		log:   log,
	}
}

// AddSink registers a sink. Sinks must be added before ProcessQueue runs.
func (c *Collector) AddSink(s sink.Sink) {
	c.sinks = append(c.sinks, s)
}

// Notify enqueues the measurements without blocking the meter. When the
// queue is full the rest of the batch is dropped.
func (c *Collector) Notify(measurements []types.Measurement) {
	for i, m := range measurements {
		select {
		case c.queue <- m:
		default:
			c.log.Warn().
				Int("dropped", len(measurements)-i).
				Msg("Queue is full, dropping measurements")
			return
		}
	}
}

// ProcessQueue hands every queued measurement to all sinks until ctx is done.
// It must run at most once per Collector.
func (c *Collector) ProcessQueue(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.queue:
			for _, s := range c.sinks {
				if err := s.Send(m); err != nil {
					c.log.Warn().Err(err).Str("sink", s.Name()).Msg("Failed to send measurement")
				}
			}
		}
	}
}

// Done is closed once ProcessQueue has returned. Sinks may only be stopped
// after that.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// StartSinks starts all sinks. A sink failing to start is removed.
func (c *Collector) StartSinks(ctx context.Context) error {
	started := c.sinks[:0]
	for _, s := range c.sinks {
		if err := s.Start(ctx); err != nil {
			c.log.Error().Err(err).Str("sink", s.Name()).Msg("Failed to start sink")
			continue
		}
		c.log.Info().Str("sink", s.Name()).Msg("Sink started")
		started = append(started, s)
	}
	c.sinks = started
	if len(c.sinks) == 0 {
		return errors.New("no sink could be started")
	}
	return nil
}

func (c *Collector) StopSinks(ctx context.Context) {
	for _, s := range c.sinks {
		if err := s.Stop(ctx); err != nil {
			c.log.Warn().Err(err).Str("sink", s.Name()).Msg("Failed to stop sink")
		}
	}
}

// Package sampler runs the periodic acquisition loop:
// transport -> decode -> voltage -> (thermistor) -> outputs.
package sampler

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/output"
	"github.com/ericogr/mcp3021-reader/pkg/sensor"
	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// State of the loop. Terminated is final.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// ErrTerminated is returned by Step once a tick has failed.
var ErrTerminated = errors.New("sampler: loop terminated")

type Option func(*Loop)

func WithClock(c clock.Clock) Option {
	return func(l *Loop) { l.clock = c }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithMaxTicks stops Run after n readings; 0 means no limit.
func WithMaxTicks(n int) Option {
	return func(l *Loop) { l.maxTicks = n }
}

type Loop struct {
	cfg       config.Config
	transport sensor.Transport
	outputs   []output.Output
	model     thermistor.Model
	hasModel  bool
	clock     clock.Clock
	logger    *zap.SugaredLogger
	maxTicks  int

	state State
	ticks int
}

// New returns a loop in the Running state. The transport must already be
// open; the loop does not close it.
func New(cfg config.Config, transport sensor.Transport, outputs []output.Output, opts ...Option) *Loop {
	l := &Loop{
		cfg:       cfg,
		transport: transport,
		outputs:   outputs,
		clock:     clock.New(),
		logger:    zap.NewNop().Sugar(),
		maxTicks:  cfg.Samples,
	}
	l.model, l.hasModel = cfg.Model()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) State() State { return l.state }

// Ticks is the number of readings emitted so far.
func (l *Loop) Ticks() int { return l.ticks }

// Step performs one tick without waiting. A read or domain error terminates
// the loop; nothing is published for a failed tick.
func (l *Loop) Step() (sensor.Reading, error) {
	if l.state == Terminated {
		return sensor.Reading{}, ErrTerminated
	}
	r, err := l.acquire()
	if err != nil {
		l.state = Terminated
		return sensor.Reading{}, err
	}
	l.publish(r)
	l.ticks++
	return r, nil
}

func (l *Loop) acquire() (sensor.Reading, error) {
	raw, err := l.transport.ReadTransfer()
	if err != nil {
		return sensor.Reading{}, err
	}
	sample := adc.Decode(raw)
	r := sensor.Reading{
		Elapsed: float64(l.ticks) * l.cfg.Delay,
		Raw:     raw,
		Sample:  sample,
		Voltage: adc.Voltage(sample, l.cfg.VRef),
	}
	if l.hasModel {
		th, err := l.model.Temperature(r.Voltage, l.cfg.VRef)
		if err != nil {
			return sensor.Reading{}, err
		}
		r.Thermistor = &th
	}
	l.logger.Debugw("sample", "raw", fmt.Sprintf("% X", raw[:]), "adc", sample, "voltage", r.Potential())
	return r, nil
}

func (l *Loop) publish(r sensor.Reading) {
	for _, o := range l.outputs {
		if err := o.Publish(r); err != nil {
			l.logger.Warnw("publish failed", "output", fmt.Sprintf("%T", o), "error", err)
		}
	}
}

// Run steps and sleeps for the configured interval until a tick fails, the
// context is cancelled or the tick limit is reached. Only a failed tick
// returns an error.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.cfg.Interval()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := l.Step(); err != nil {
			return err
		}
		if l.maxTicks > 0 && l.ticks >= l.maxTicks {
			return nil
		}
		timer := l.clock.Timer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/output"
	"github.com/ericogr/mcp3021-reader/pkg/sensor"
	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// scripted returns the samples in order, then fails like an absent device.
type scripted struct {
	samples []adc.Sample
	reads   int
	closed  bool
}

func (s *scripted) ReadTransfer() (adc.RawTransfer, error) {
	if s.reads >= len(s.samples) {
		return adc.RawTransfer{}, &sensor.TransportError{Addr: 0x4A, Err: errors.New("no ACK")}
	}
	s.reads++
	return s.samples[s.reads-1].Transfer(), nil
}

func (s *scripted) Close() error {
	s.closed = true
	return nil
}

// endless always returns mid-scale.
type endless struct{}

func (endless) ReadTransfer() (adc.RawTransfer, error) { return adc.Sample(512).Transfer(), nil }

func (endless) Close() error { return nil }

type recorder struct {
	readings []sensor.Reading
	err      error
}

func (r *recorder) Start(config.Config) error { return nil }

func (r *recorder) Publish(rd sensor.Reading) error {
	r.readings = append(r.readings, rd)
	return r.err
}
func (r *recorder) Close() error { return nil }

func TestStep(t *testing.T) {
	cfg := config.DefaultConfig()
	tr := &scripted{samples: []adc.Sample{0, 512, 1023}}
	rec := &recorder{}
	l := New(cfg, tr, []output.Output{rec})

	for i, want := range []adc.Sample{0, 512, 1023} {
		r, err := l.Step()
		require.NoError(t, err)
		assert.Equal(t, want, r.Sample)
		assert.Equal(t, float64(i)*0.5, r.Elapsed)
		assert.InDelta(t, float64(want)*3.3/1023, r.Voltage, 1e-12)
		assert.Nil(t, r.Thermistor)
	}
	assert.Equal(t, Running, l.State())
	assert.Equal(t, 3, l.Ticks())

	_, err := l.Step()
	var te *sensor.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, Terminated, l.State())
	assert.Len(t, rec.readings, 3)

	_, err = l.Step()
	assert.ErrorIs(t, err, ErrTerminated)
	assert.False(t, tr.closed)
}

func TestStepThermistor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Thermistor = config.DefaultThermistor()
	rec := &recorder{}
	l := New(cfg, &scripted{samples: []adc.Sample{512, 0}}, []output.Output{rec})

	r, err := l.Step()
	require.NoError(t, err)
	require.NotNil(t, r.Thermistor)
	assert.InDelta(t, 10019.569, r.Thermistor.Resistance, 0.001)
	assert.InDelta(t, 24.956, r.Thermistor.Celsius, 0.001)

	// a zero reading puts the divider on the rail
	_, err = l.Step()
	var de *thermistor.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, Terminated, l.State())
	assert.Len(t, rec.readings, 1)
}

func TestPublishErrorIsNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	l := New(config.DefaultConfig(), endless{}, []output.Output{rec})
	for i := 0; i < 3; i++ {
		_, err := l.Step()
		require.NoError(t, err)
	}
	assert.Len(t, rec.readings, 3)
	assert.Equal(t, Running, l.State())
}

// pump advances the mock clock until done is closed.
func pump(mock *clock.Mock, d time.Duration, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-time.After(time.Millisecond):
			mock.Add(d)
		}
	}
}

func TestRunMaxTicks(t *testing.T) {
	cfg := config.DefaultConfig()
	mock := clock.NewMock()
	rec := &recorder{}
	l := New(cfg, endless{}, []output.Output{rec}, WithClock(mock), WithMaxTicks(4))

	done := make(chan struct{})
	go pump(mock, cfg.Interval(), done)
	err := l.Run(context.Background())
	close(done)

	require.NoError(t, err)
	require.Len(t, rec.readings, 4)
	for i, r := range rec.readings {
		assert.Equal(t, float64(i)*0.5, r.Elapsed)
	}
	assert.Equal(t, Running, l.State())
}

func TestRunSamplesFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Samples = 1
	rec := &recorder{}
	// a single sample never sleeps, so the real clock is fine
	require.NoError(t, New(cfg, endless{}, []output.Output{rec}).Run(context.Background()))
	assert.Len(t, rec.readings, 1)
}

func TestRunStopsOnTransportError(t *testing.T) {
	cfg := config.DefaultConfig()
	mock := clock.NewMock()
	rec := &recorder{}
	l := New(cfg, &scripted{samples: []adc.Sample{100, 200}}, []output.Output{rec}, WithClock(mock))

	done := make(chan struct{})
	go pump(mock, cfg.Interval(), done)
	err := l.Run(context.Background())
	close(done)

	var te *sensor.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "There is no I2C device present at 0x4A.", err.Error())
	assert.Len(t, rec.readings, 2)
	assert.Equal(t, Terminated, l.State())
}

// notifier signals the first published reading.
type notifier struct {
	recorder
	first chan struct{}
}

func (n *notifier) Publish(rd sensor.Reading) error {
	if len(n.readings) == 0 {
		close(n.first)
	}
	return n.recorder.Publish(rd)
}

func TestRunCancel(t *testing.T) {
	mock := clock.NewMock()
	n := &notifier{first: make(chan struct{})}
	l := New(config.DefaultConfig(), endless{}, []output.Output{n}, WithClock(mock))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	// the mock clock never advances, so the loop waits after the first tick
	<-n.first
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, n.readings, 1)
	assert.Equal(t, Running, l.State())
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := &scripted{samples: []adc.Sample{1}}
	require.NoError(t, New(config.DefaultConfig(), tr, nil).Run(ctx))
	assert.Equal(t, 0, tr.reads)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "terminated", Terminated.String())
}

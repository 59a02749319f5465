package sensor

import (
	"math"
	"math/rand"
	"sync"

	"github.com/ericogr/mcp3021-reader/pkg/adc"
	"github.com/ericogr/mcp3021-reader/pkg/thermistor"
)

// Temperature range of the simulated thermistor, in Celsius.
const (
	fakeStartCelsius = 25.0
	fakeMinCelsius   = -10.0
	fakeMaxCelsius   = 60.0
	fakeCelsiusStep  = 0.2
)

// FakeSensor simulates an MCP3021 whose input drifts slowly around mid-scale.
// It never reports the rails. With a thermistor model it walks a temperature
// instead and reports the divider voltage that temperature produces.
type FakeSensor struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	sample adc.Sample

	model   *thermistor.Model
	vref    float64
	celsius float64
}

func NewFakeSensor(seed int64) *FakeSensor {
	return &FakeSensor{rnd: rand.New(rand.NewSource(seed)), sample: adc.MaxCount / 2}
}

// NewFakeThermistor simulates a thermistor divider described by model.
func NewFakeThermistor(seed int64, model thermistor.Model, vref float64) *FakeSensor {
	f := NewFakeSensor(seed)
	f.model = &model
	f.vref = vref
	f.celsius = fakeStartCelsius
	return f
}

func (f *FakeSensor) ReadTransfer() (adc.RawTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model != nil {
		f.sample = f.nextThermistorSample()
	} else {
		f.sample = clampSample(int(f.sample) + f.rnd.Intn(7) - 3)
	}
	return f.sample.Transfer(), nil
}

func (f *FakeSensor) nextThermistorSample() adc.Sample {
	f.celsius += (f.rnd.Float64()*2 - 1) * fakeCelsiusStep
	f.celsius = math.Max(fakeMinCelsius, math.Min(fakeMaxCelsius, f.celsius))
	v := f.model.VoltageAt(f.model.ResistanceAt(f.celsius), f.vref)
	return clampSample(int(adc.FromVoltage(v, f.vref)))
}

// Celsius is the temperature the simulated thermistor is at.
func (f *FakeSensor) Celsius() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.celsius
}

func clampSample(n int) adc.Sample {
	if n < 1 {
		n = 1
	}
	if n > adc.MaxCount-1 {
		n = adc.MaxCount - 1
	}
	return adc.Sample(n)
}

func (f *FakeSensor) Close() error { return nil }

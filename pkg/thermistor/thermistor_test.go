package thermistor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemperatureKnownPoint(t *testing.T) {
	m := New(Bottom, DefaultBaseResistance, DefaultBValue)
	v := 512 * 3.3 / 1023

	r, err := m.Temperature(v, 3.3)
	require.NoError(t, err)
	assert.InDelta(t, 10000*512.0/511.0, r.Resistance, 1e-6)
	assert.InDelta(t, 24.956, r.Celsius, 0.001)
}

func TestTemperatureAtBaseResistance(t *testing.T) {
	for _, topo := range []Topology{Bottom, Top} {
		m := New(topo, DefaultBaseResistance, DefaultBValue)
		// equal resistors put the node at half the supply
		r, err := m.Temperature(1.65, 3.3)
		require.NoError(t, err)
		assert.InDelta(t, 10000, r.Resistance, 1e-9)
		assert.InDelta(t, 25.0, r.Celsius, 1e-9)
	}
}

func TestTopology(t *testing.T) {
	bottom := New(Bottom, DefaultBaseResistance, DefaultBValue)
	top := New(Top, DefaultBaseResistance, DefaultBValue)

	for _, v := range []float64{0.1, 0.8, 1.65, 2.4, 3.2} {
		rb, err := bottom.Resistance(v, 3.3)
		require.NoError(t, err)
		rt, err := top.Resistance(v, 3.3)
		require.NoError(t, err)

		ratio := 3.3/v - 1
		assert.InDelta(t, CompanionResistance/ratio, rb, 1e-9)
		assert.InDelta(t, CompanionResistance*ratio, rt, 1e-9)
		assert.InDelta(t, CompanionResistance*CompanionResistance, rb*rt, 1e-3)
	}

	// A hotter thermistor has lower resistance: the node voltage falls when
	// it sits at the bottom and rises when it sits at the top.
	assert.Greater(t, bottom.VoltageAt(bottom.ResistanceAt(0), 3.3), bottom.VoltageAt(bottom.ResistanceAt(50), 3.3))
	assert.Less(t, top.VoltageAt(top.ResistanceAt(0), 3.3), top.VoltageAt(top.ResistanceAt(50), 3.3))
}

func TestTopologySwapRoles(t *testing.T) {
	// Swapping the two resistors between the top and bottom positions leaves
	// the divider unchanged, so the same node voltage must be explained.
	const vref = 3.3
	m := Model{Topology: Bottom, CompanionResistance: 4700, BaseResistance: 10000, BValue: 3950, ReferenceTemp: ReferenceTemp}
	swapped := Model{Topology: Top, CompanionResistance: 4700, BaseResistance: 10000, BValue: 3950, ReferenceTemp: ReferenceTemp}

	rt := 12000.0
	vb := m.VoltageAt(rt, vref)
	vt := swapped.VoltageAt(rt, vref)
	assert.InDelta(t, vref, vb+vt, 1e-12)

	gotB, err := m.Resistance(vb, vref)
	require.NoError(t, err)
	gotT, err := swapped.Resistance(vref-vb, vref)
	require.NoError(t, err)
	assert.InDelta(t, rt, gotB, 1e-6)
	assert.InDelta(t, rt, gotT, 1e-6)
}

func TestRoundTrip(t *testing.T) {
	for _, topo := range []Topology{Bottom, Top} {
		m := New(topo, 4700, 3435)
		for i := 1; i < 66; i++ {
			v := float64(i) * 0.05
			r, err := m.Temperature(v, 3.3)
			require.NoError(t, err)
			back := m.ResistanceAt(r.Celsius)
			require.InEpsilon(t, r.Resistance, back, 1e-9, "topology %s voltage %.2f", topo, v)
			require.InEpsilon(t, v, m.VoltageAt(back, 3.3), 1e-9)
		}
	}
}

func TestDomainErrors(t *testing.T) {
	m := New(Bottom, DefaultBaseResistance, DefaultBValue)
	for _, v := range []float64{0, -0.1, 3.3, 3.31, math.NaN(), math.Inf(1)} {
		r, err := m.Temperature(v, 3.3)
		var de *DomainError
		require.True(t, errors.As(err, &de), "voltage %v", v)
		assert.Equal(t, Reading{}, r)
		assert.False(t, math.IsNaN(r.Celsius) || math.IsInf(r.Celsius, 0))
	}

	_, err := m.TemperatureFromResistance(0)
	assert.Error(t, err)
	_, err = m.TemperatureFromResistance(math.Inf(1))
	assert.Error(t, err)
	// ln(Rt/R0) below -B/T0 makes 1/T negative
	_, err = m.TemperatureFromResistance(1e-4)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "beyond the B-parameter model")
}

func TestDomainErrorMessage(t *testing.T) {
	_, err := New(Top, DefaultBaseResistance, DefaultBValue).Resistance(3.3, 3.3)
	require.Error(t, err)
	assert.Equal(t, "The voltage 3.30V is outside the thermistor divider range (0, 3.3)V.", err.Error())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New(Bottom, 10000, 3950).Validate())
	assert.NoError(t, New(Top, 4700, 3435).Validate())
	assert.ErrorIs(t, New(Bottom, 0, 3950).Validate(), ErrBaseResistance)
	assert.ErrorIs(t, New(Bottom, math.NaN(), 3950).Validate(), ErrBaseResistance)
	assert.ErrorIs(t, New(Bottom, math.Inf(1), 3950).Validate(), ErrBaseResistance)
	assert.ErrorIs(t, New(Bottom, 10000, 0).Validate(), ErrBValue)
	assert.ErrorIs(t, New(Topology(7), 10000, 3950).Validate(), ErrTopology)
	assert.ErrorIs(t, Model{BaseResistance: 1, BValue: 1, ReferenceTemp: 1}.Validate(), ErrCompanionResistance)
	assert.ErrorIs(t, Model{CompanionResistance: 1, BaseResistance: 1, BValue: 1}.Validate(), ErrReferenceTemp)
}

func TestTopologyText(t *testing.T) {
	tests := []struct {
		in   string
		want Topology
		ok   bool
	}{
		{"b", Bottom, true},
		{"B", Bottom, true},
		{"t", Top, true},
		{"T", Top, true},
		{"top", Top, true},
		{"bottom", Bottom, true},
		{"x", Bottom, false},
		{"", Bottom, false},
	}
	for _, tt := range tests {
		var got Topology
		err := got.UnmarshalText([]byte(tt.in))
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	b, err := Top.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "t", string(b))
	assert.Equal(t, "bottom", Bottom.String())
	assert.Equal(t, "top", Top.String())
}

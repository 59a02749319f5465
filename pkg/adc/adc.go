// Package adc decodes MCP3021 conversions and scales them to volts.
//
// The device returns its 10-bit result left-justified in a 16-bit word:
//
//	0 0 0 0 D9 D8 D7 D6    D5 D4 D3 D2 D1 D0 0 0
//
// Transports hand over the two bytes in bus (stream) order.
package adc

import (
	"encoding/binary"
	"math"
)

const (
	// Bits is the MCP3021 resolution.
	Bits = 10
	// MaxCount is the largest sample the device can report.
	MaxCount = 1<<Bits - 1

	padBits = 2
)

// RawTransfer is one 2-byte read in stream order.
type RawTransfer [2]byte

// Sample is a decoded conversion in [0, MaxCount].
type Sample uint16

// Decode turns a raw transfer into a sample.
func Decode(raw RawTransfer) Sample {
	word := binary.BigEndian.Uint16(raw[:])
	return Sample((word >> padBits) & MaxCount)
}

// TransferFromWord restores stream order from an SMBus word read, which
// packs the first byte on the wire into the low byte of the word.
func TransferFromWord(word uint16) RawTransfer {
	var raw RawTransfer
	binary.LittleEndian.PutUint16(raw[:], word)
	return raw
}

// Transfer encodes the sample the way the device puts it on the bus.
func (s Sample) Transfer() RawTransfer {
	var raw RawTransfer
	binary.BigEndian.PutUint16(raw[:], uint16(s&MaxCount)<<padBits)
	return raw
}

// ToVoltage scales a sample of the given resolution against vref.
func ToVoltage(sample Sample, vref float64, bits int) float64 {
	full := math.Exp2(float64(bits)) - 1
	return float64(sample) * vref / full
}

// Voltage is ToVoltage at the device resolution.
func Voltage(sample Sample, vref float64) float64 {
	return ToVoltage(sample, vref, Bits)
}

// FromVoltage is the sample the device would report for an input voltage,
// rounded to the nearest count and clamped to [0, MaxCount].
func FromVoltage(v, vref float64) Sample {
	n := math.Round(v / vref * MaxCount)
	switch {
	case !(n > 0):
		return 0
	case n > MaxCount:
		return MaxCount
	}
	return Sample(n)
}

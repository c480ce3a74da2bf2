// Package crc implements the reflected CRC-32 used by EAC for audio data
// checksums. It is the zlib/PNG/Ethernet CRC-32, processed one byte at a time.
package crc

import "sync"

const (
	// Polynomial is the normal (non-reflected) CRC-32 generator polynomial.
	Polynomial = 0x04C11DB7

	// Initial is the register value before any byte is accumulated.
	Initial = 0xFFFFFFFF

	finalXOR = 0xFFFFFFFF
)

// Table is a 256-entry lookup table for byte-at-a-time CRC updates.
type Table [256]uint32

var ieeeTable = sync.OnceValue(BuildTable)

// IEEETable returns the standard reflected table, built on first use.
// The returned table is shared and must not be modified.
func IEEETable() *Table {
	return ieeeTable()
}

// BuildTable computes the reflected CRC-32 lookup table for Polynomial.
// This is a pure function: every call returns an equal table.
func BuildTable() *Table {
	var t Table
	for i := range t {
		v := Reflect(uint32(i), 8) << 24
		for j := 0; j < 8; j++ {
			if v&(1<<31) != 0 {
				v = v<<1 ^ Polynomial
			} else {
				v <<= 1
			}
		}
		t[i] = Reflect(v, 32)
	}
	return &t
}

// Reflect mirrors the low width bits of v (bit 0 swaps with bit width-1, and
// so on). Bits above width are dropped.
func Reflect(v uint32, width uint) uint32 {
	var r uint32
	for i := uint(1); i <= width; i++ {
		if v&1 != 0 {
			r |= 1 << (width - i)
		}
		v >>= 1
	}
	return r
}

// Update feeds one byte into a running CRC state.
func Update(state uint32, b byte, t *Table) uint32 {
	return state>>8 ^ t[byte(state)^b]
}

// UpdateBytes feeds p into a running CRC state.
func UpdateBytes(state uint32, p []byte, t *Table) uint32 {
	for _, b := range p {
		state = state>>8 ^ t[byte(state)^b]
	}
	return state
}

// Checksum returns the finalised CRC-32 of p.
func Checksum(p []byte) uint32 {
	return UpdateBytes(Initial, p, IEEETable()) ^ finalXOR
}

// Accumulator holds one running CRC state.
// The zero value is not usable, create one with NewAccumulator.
type Accumulator struct {
	state uint32
	table *Table
}

// NewAccumulator returns an accumulator seeded with Initial.
// A nil table selects IEEETable.
func NewAccumulator(t *Table) *Accumulator {
	if t == nil {
		t = IEEETable()
	}
	return &Accumulator{state: Initial, table: t}
}

// WriteByte accumulates a single byte. It never fails.
func (a *Accumulator) WriteByte(b byte) error {
	a.state = Update(a.state, b, a.table)
	return nil
}

// Write accumulates p. It never fails.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.state = UpdateBytes(a.state, p, a.table)
	return len(p), nil
}

// Sum32 returns the finalised CRC of everything written so far.
// The running state is left untouched.
func (a *Accumulator) Sum32() uint32 {
	return a.state ^ finalXOR
}

// Reset returns the accumulator to its initial state.
func (a *Accumulator) Reset() {
	a.state = Initial
}

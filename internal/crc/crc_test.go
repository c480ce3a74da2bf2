package crc

import (
	"testing"

	"github.com/klauspost/crc32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflect(t *testing.T) {
	for _, test := range []struct {
		name  string
		v     uint32
		width uint
		want  uint32
	}{
		{name: "byte low bit", v: 0x01, width: 8, want: 0x80},
		{name: "byte pattern", v: 0xA0, width: 8, want: 0x05},
		{name: "byte drops high bits", v: 0x1FF, width: 8, want: 0xFF},
		{name: "word", v: 0x00000001, width: 32, want: 0x80000000},
		{name: "word pattern", v: 0x04C11DB7, width: 32, want: 0xEDB88320},
		{name: "zero width", v: 0xFFFFFFFF, width: 0, want: 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Reflect(test.v, test.width))
		})
	}
}

func TestBuildTable_MatchesIEEE(t *testing.T) {
	got := BuildTable()
	want := Table(*crc32.MakeTable(crc32.IEEE))
	assert.Equal(t, want, *got)

	assert.Equal(t, uint32(0x00000000), got[0])
	assert.Equal(t, uint32(0x77073096), got[1])
	assert.Equal(t, uint32(0x2D02EF8D), got[255])
}

func TestBuildTable_Deterministic(t *testing.T) {
	a := BuildTable()
	b := BuildTable()
	assert.Equal(t, *a, *b)
	assert.NotSame(t, a, b)
	assert.Same(t, IEEETable(), IEEETable())
}

func TestUpdate_SharedAndFreshTablesAgree(t *testing.T) {
	fresh := BuildTable()
	shared := IEEETable()
	state := uint32(Initial)
	for i := 0; i < 1024; i++ {
		b := byte(i * 31)
		s1 := Update(state, b, shared)
		s2 := Update(state, b, fresh)
		require.Equal(t, s1, s2, "byte %d", i)
		state = s1
	}
}

func TestChecksum_KnownValues(t *testing.T) {
	for _, test := range []struct {
		name string
		data []byte
		want uint32
	}{
		{name: "empty", data: nil, want: 0x00000000},
		{name: "check string", data: []byte("123456789"), want: 0xCBF43926},
		{name: "single zero", data: []byte{0x00}, want: 0xD202EF8D},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Checksum(test.data))
			assert.Equal(t, crc32.ChecksumIEEE(test.data), Checksum(test.data))
		})
	}
}

func TestAccumulator(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")

	a := NewAccumulator(nil)
	assert.Equal(t, uint32(0), a.Sum32())

	for _, b := range data[:10] {
		require.NoError(t, a.WriteByte(b))
	}
	n, err := a.Write(data[10:])
	require.NoError(t, err)
	assert.Equal(t, len(data)-10, n)

	assert.Equal(t, uint32(0x414FA339), a.Sum32())
	// Sum32 does not disturb the running state
	assert.Equal(t, uint32(0x414FA339), a.Sum32())

	a.Reset()
	assert.Equal(t, uint32(0), a.Sum32())
}

func TestAccumulator_SplitInvariant(t *testing.T) {
	data := make([]byte, 4099)
	for i := range data {
		data[i] = byte(i*7 + i>>3)
	}
	want := crc32.ChecksumIEEE(data)

	for _, step := range []int{1, 2, 3, 64, 1000, 4096, len(data)} {
		a := NewAccumulator(BuildTable())
		for off := 0; off < len(data); off += step {
			end := off + step
			if end > len(data) {
				end = len(data)
			}
			a.Write(data[off:end])
		}
		assert.Equal(t, want, a.Sum32(), "step %d", step)
	}
}

func BenchmarkUpdateBytes(b *testing.B) {
	data := make([]byte, 4096*4)
	t := IEEETable()
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		UpdateBytes(Initial, data, t)
	}
}

package bitreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBits(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		n    int
		want uint32
	}{
		{"single_byte_full", []byte{0xAB}, 8, 0xAB},
		{"single_bit", []byte{0x80}, 1, 1},
		{"crosses_byte_boundary", []byte{0x00, 0xFF}, 12, 0x00F},
		{"full_32_bits", []byte{0xDE, 0xAD, 0xBE, 0xEF}, 32, 0xDEADBEEF},
		{"zero_bits", []byte{0xFF}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.data)
			got, err := r.ReadBits(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadBitsSequential(t *testing.T) {
	r := New([]byte{0b10110010, 0b01010101})
	v1, err := r.ReadBits(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b101), v1)

	v2, err := r.ReadBits(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b10010), v2)

	v3, err := r.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b01010101), v3)
}

func TestReadBitsExhausted(t *testing.T) {
	r := New([]byte{0xFF})
	_, err := r.ReadBits(9)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestReadBit(t *testing.T) {
	r := New([]byte{0b10000000})
	b, err := r.ReadBit()
	require.NoError(t, err)
	assert.True(t, b)

	b, err = r.ReadBit()
	require.NoError(t, err)
	assert.False(t, b)
}

func TestSkipBits(t *testing.T) {
	r := New([]byte{0xFF, 0xAB})
	require.NoError(t, r.SkipBits(8))
	v, err := r.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAB), v)
}

func TestReadUE(t *testing.T) {
	tests := []struct {
		name string
		bits []byte
		want uint32
	}{
		{"zero", []byte{0b10000000}, 0},
		{"one", []byte{0b01000000}, 1},
		{"two", []byte{0b01100000}, 2},
		{"three", []byte{0b00100000}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.bits)
			got, err := r.ReadUE()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadSE(t *testing.T) {
	tests := []struct {
		name string
		bits []byte
		want int32
	}{
		{"zero", []byte{0b10000000}, 0},
		{"plus_one", []byte{0b01000000}, 1},
		{"minus_one", []byte{0b01100000}, -1},
		{"plus_two", []byte{0b00100000}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.bits)
			got, err := r.ReadSE()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBitsRemaining(t *testing.T) {
	r := New([]byte{0x00, 0x00})
	assert.Equal(t, 16, r.BitsRemaining())
	_, err := r.ReadBits(5)
	require.NoError(t, err)
	assert.Equal(t, 11, r.BitsRemaining())
}

func TestSkipScalingList(t *testing.T) {
	// Each pair of 0b10000000 bytes decodes as se(v)=0 followed by se(v)=+64
	// (ue(v)=127), so the 16 se(v) codes consume exactly the 16 bytes
	// without error.
	bits := make([]byte, 0, 2)
	for i := 0; i < 16; i++ {
		bits = append(bits, 0b10000000)
	}
	r := New(bits)
	err := r.SkipScalingList(16)
	require.NoError(t, err)
}

func TestReadBitsInvalidCount(t *testing.T) {
	r := New([]byte{0x00})
	_, err := r.ReadBits(-1)
	assert.Error(t, err)
	_, err = r.ReadBits(33)
	assert.Error(t, err)
}

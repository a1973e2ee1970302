package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadU29(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
		n    int
	}{
		{"single_byte", []byte{0x10}, 0x10, 1},
		{"two_bytes", []byte{0x81, 0x01}, 0x81, 2},
		{"four_byte_form", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0x1FFFFFFF, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := readU29(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestDecodeAMF3Primitives(t *testing.T) {
	v, n, err := decodeAMF3Value([]byte{amf3Null})
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1, n)

	v, _, err = decodeAMF3Value([]byte{amf3True})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, _, err = decodeAMF3Value([]byte{amf3False})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestDecodeAMF3Integer(t *testing.T) {
	v, n, err := decodeAMF3Value([]byte{amf3Integer, 0x2A})
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
	assert.Equal(t, 2, n)
}

func TestDecodeAMF3String(t *testing.T) {
	data := []byte{amf3String, 0x0B, 'h', 'e', 'l', 'l', 'o'} // (5<<1)|1 = 11
	v, _, err := decodeAMF3Value(data)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestDecodeAMF3Double(t *testing.T) {
	data := []byte{amf3Double, 0x40, 0x45, 0, 0, 0, 0, 0, 0} // 42.0
	v, _, err := decodeAMF3Value(data)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestDecodeAMF3DenseArray(t *testing.T) {
	data := []byte{
		amf3Array,
		0x05,                   // (2<<1)|1 = 5, dense length 2
		0x01,                   // empty assoc-key terminator
		amf3True,
		amf3False,
	}
	v, _, err := decodeAMF3Value(data)
	require.NoError(t, err)
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, true, arr[0])
	assert.Equal(t, false, arr[1])
}

func TestDecodeAMF3ObjectDynamic(t *testing.T) {
	data := []byte{amf3Object}
	data = append(data, 0x0B) // ref: traits-inline(bit1)=1, dynamic(bit3)=1, sealedCount(bits4+)=0 -> 0b01011 = 0x0B
	data = append(data, 0x01) // empty class name (U29 string ref: (0<<1)|1, size 0)
	data = append(data, 0x0B, 'h', 'e', 'l', 'l', 'o')
	data = append(data, amf3Integer, 0x01)
	data = append(data, 0x01) // empty-string terminator

	v, _, err := decodeAMF3Value(data)
	require.NoError(t, err)
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int32(1), obj["hello"])
}

func TestAMF0EscapeToAMF3(t *testing.T) {
	data := []byte{markerAVMPlus, amf3True}
	values, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, true, values[0])
}

func TestStringReferenceTable(t *testing.T) {
	ctx := &amf3Context{}
	s1, n1, err := ctx.readString([]byte{0x0B, 'h', 'e', 'l', 'l', 'o'})
	require.NoError(t, err)
	assert.Equal(t, "hello", s1)
	assert.Equal(t, 6, n1)

	// Reference back to string index 0.
	s2, n2, err := ctx.readString([]byte{0x00})
	require.NoError(t, err)
	assert.Equal(t, "hello", s2)
	assert.Equal(t, 1, n2)
}

package amf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	// Number 3.0, big-endian IEEE754 double.
	data := []byte{markerNumber, 0x40, 0x08, 0, 0, 0, 0, 0, 0}
	values, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, float64(3), values[0])
}

func TestParseBoolean(t *testing.T) {
	values, err := Parse([]byte{markerBoolean, 0x01})
	require.NoError(t, err)
	assert.Equal(t, true, values[0])

	values, err = Parse([]byte{markerBoolean, 0x00})
	require.NoError(t, err)
	assert.Equal(t, false, values[0])
}

func TestParseString(t *testing.T) {
	data := []byte{markerString, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'}
	values, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "hello", values[0])
}

func TestParseNullAndUndefined(t *testing.T) {
	values, err := Parse([]byte{markerNull, markerUndefined})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Nil(t, values[0])
	assert.Nil(t, values[1])
}

func TestParseStrictArray(t *testing.T) {
	data := []byte{
		markerStrictArray, 0x00, 0x00, 0x00, 0x02,
		markerNumber, 0x3F, 0xF0, 0, 0, 0, 0, 0, 0, // 1.0
		markerBoolean, 0x01,
	}
	values, err := Parse(data)
	require.NoError(t, err)
	arr, ok := values[0].([]any)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, float64(1), arr[0])
	assert.Equal(t, true, arr[1])
}

func TestParseObject(t *testing.T) {
	data := []byte{markerObject}
	data = append(data, 0x00, 0x04, 'n', 'a', 'm', 'e')
	data = append(data, markerString, 0x00, 0x03, 'f', 'o', 'o')
	data = append(data, 0x00, 0x00, markerObjectEnd)

	values, err := Parse(data)
	require.NoError(t, err)
	obj, ok := values[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "foo", obj["name"])
}

func TestParseEcmaArray(t *testing.T) {
	data := []byte{markerEcmaArray, 0x00, 0x00, 0x00, 0x01}
	data = append(data, 0x00, 0x05, 'w', 'i', 'd', 't', 'h')
	data = append(data, markerNumber, 0x40, 0x89, 0, 0, 0, 0, 0, 0) // 800
	data = append(data, 0x00, 0x00, markerObjectEnd)

	values, err := Parse(data)
	require.NoError(t, err)
	obj, ok := values[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(800), obj["width"])
}

func TestParseDate(t *testing.T) {
	millis := float64(1000)
	data := []byte{markerDate, 0x40, 0x8F, 0x40, 0, 0, 0, 0, 0, 0x00, 0x00}
	values, err := Parse(data)
	require.NoError(t, err)
	ts, ok := values[0].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(int64(millis)).UTC(), ts)
}

func TestParseTypedObject(t *testing.T) {
	data := []byte{markerTypedObject, 0x00, 0x04, 'T', 'e', 's', 't'}
	data = append(data, 0x00, 0x00, markerObjectEnd)
	values, err := Parse(data)
	require.NoError(t, err)
	obj, ok := values[0].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, obj)
}

func TestParseMultipleTopLevelValues(t *testing.T) {
	data := []byte{markerBoolean, 0x01, markerNull}
	values, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestParseTruncated(t *testing.T) {
	_, err := Parse([]byte{markerString, 0x00, 0x05, 'h', 'i'})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseUnknownMarker(t *testing.T) {
	_, err := Parse([]byte{0xFE})
	assert.Error(t, err)
}

func TestParseEmptyInput(t *testing.T) {
	values, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

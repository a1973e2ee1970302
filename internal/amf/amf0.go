// Package amf decodes AMF0/AMF3 (Action Message Format) values, the typed
// tagged value serialization used by FLV script tags, into a free-form Go
// value tree: float64, bool, string, nil, []any, map[string]any, or
// time.Time for AMF0 Date values. Values reached through the AMF3 escape
// may also be int32 (integers), []byte (byte arrays), or float64
// milliseconds (dates).
package amf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// AMF0 markers, per the Adobe AMF0 specification §2.1.
const (
	markerNumber      = 0x00
	markerBoolean     = 0x01
	markerString      = 0x02
	markerObject      = 0x03
	markerMovieClip   = 0x04
	markerNull        = 0x05
	markerUndefined   = 0x06
	markerReference   = 0x07
	markerEcmaArray   = 0x08
	markerObjectEnd   = 0x09
	markerStrictArray = 0x0A
	markerDate        = 0x0B
	markerLongString  = 0x0C
	markerUnsupported = 0x0D
	markerRecordSet   = 0x0E
	markerXMLDocument = 0x0F
	markerTypedObject = 0x10
	markerAVMPlus     = 0x11
)

// ErrTruncated is returned when the input ends before a value is fully
// decoded.
var ErrTruncated = errors.New("amf: truncated input")

// Parse decodes a sequence of top-level AMF0 values (for example, the
// FLV script tag's `[methodName, value]` pair) and returns them in order.
func Parse(data []byte) ([]any, error) {
	var values []any
	pos := 0
	for pos < len(data) {
		v, n, err := decodeValue(data[pos:])
		if err != nil {
			return values, err
		}
		values = append(values, v)
		pos += n
	}
	return values, nil
}

// decodeValue decodes one AMF0 (or, via the 0x11 escape, AMF3) value
// starting at the front of p, returning the value and the number of bytes
// consumed.
func decodeValue(p []byte) (any, int, error) {
	if len(p) < 1 {
		return nil, 0, ErrTruncated
	}

	switch p[0] {
	case markerNumber:
		if len(p) < 9 {
			return nil, 0, ErrTruncated
		}
		bits := binary.BigEndian.Uint64(p[1:9])
		return math.Float64frombits(bits), 9, nil

	case markerBoolean:
		if len(p) < 2 {
			return nil, 0, ErrTruncated
		}
		return p[1] != 0, 2, nil

	case markerString:
		s, n, err := decodeUTF8(p[1:])
		return s, n + 1, err

	case markerLongString, markerXMLDocument:
		s, n, err := decodeUTF8Long(p[1:])
		return s, n + 1, err

	case markerNull, markerUndefined:
		return nil, 1, nil

	case markerObject, markerTypedObject:
		return decodeObject(p)

	case markerEcmaArray:
		if len(p) < 5 {
			return nil, 0, ErrTruncated
		}
		// Approximate element count (p[1:5]); the object is still
		// terminated by the standard 00 00 09 end marker, so the count
		// itself does not need to be trusted.
		obj, n, err := decodeObjectProperties(p[5:], true)
		return obj, n + 5, err

	case markerStrictArray:
		return decodeStrictArray(p)

	case markerDate:
		if len(p) < 11 {
			return nil, 0, ErrTruncated
		}
		millis := math.Float64frombits(binary.BigEndian.Uint64(p[1:9]))
		// p[9:11] is the timezone offset in minutes; FLV producers set 0.
		return time.UnixMilli(int64(millis)).UTC(), 11, nil

	case markerReference:
		if len(p) < 3 {
			return nil, 0, ErrTruncated
		}
		return nil, 3, nil

	case markerUnsupported:
		return nil, 1, nil

	case markerAVMPlus:
		v, n, err := decodeAMF3Value(p[1:])
		return v, n + 1, err

	default:
		return nil, 0, fmt.Errorf("amf: unsupported AMF0 marker 0x%02x", p[0])
	}
}

func decodeUTF8(p []byte) (string, int, error) {
	if len(p) < 2 {
		return "", 0, ErrTruncated
	}
	size := int(binary.BigEndian.Uint16(p[0:2]))
	if len(p) < 2+size {
		return "", 0, ErrTruncated
	}
	return string(p[2 : 2+size]), 2 + size, nil
}

func decodeUTF8Long(p []byte) (string, int, error) {
	if len(p) < 4 {
		return "", 0, ErrTruncated
	}
	size := int(binary.BigEndian.Uint32(p[0:4]))
	if len(p) < 4+size {
		return "", 0, ErrTruncated
	}
	return string(p[4 : 4+size]), 4 + size, nil
}

// decodeObject decodes a markerObject/markerTypedObject value, including
// its leading marker byte (and, for typed objects, a class-name string).
func decodeObject(p []byte) (map[string]any, int, error) {
	pos := 1
	if p[0] == markerTypedObject {
		_, n, err := decodeUTF8(p[1:])
		if err != nil {
			return nil, 0, err
		}
		pos += n
	}
	obj, n, err := decodeObjectProperties(p[pos:], true)
	return obj, pos + n, err
}

// decodeObjectProperties decodes `(name, value)` pairs until the AMF0
// object-end marker (00 00 09), or until input runs out when
// requireTerminator is false.
func decodeObjectProperties(p []byte, requireTerminator bool) (map[string]any, int, error) {
	obj := make(map[string]any)
	pos := 0
	for {
		if requireTerminator && pos+3 <= len(p) && p[pos] == 0 && p[pos+1] == 0 && p[pos+2] == markerObjectEnd {
			pos += 3
			return obj, pos, nil
		}
		if pos >= len(p) {
			if requireTerminator {
				return obj, pos, ErrTruncated
			}
			return obj, pos, nil
		}

		key, n, err := decodeUTF8(p[pos:])
		if err != nil {
			return obj, pos, err
		}
		pos += n

		val, n, err := decodeValue(p[pos:])
		if err != nil {
			return obj, pos, err
		}
		pos += n

		obj[key] = val
	}
}

func decodeStrictArray(p []byte) ([]any, int, error) {
	if len(p) < 5 {
		return nil, 0, ErrTruncated
	}
	count := int(binary.BigEndian.Uint32(p[1:5]))
	pos := 5

	arr := make([]any, 0, count)
	for i := 0; i < count; i++ {
		if pos >= len(p) {
			return arr, pos, ErrTruncated
		}
		v, n, err := decodeValue(p[pos:])
		if err != nil {
			return arr, pos, err
		}
		pos += n
		arr = append(arr, v)
	}
	return arr, pos, nil
}

package amf

import (
	"encoding/binary"
	"math"
)

// AMF3 markers, per the Adobe AMF3 specification §3.1. AMF3 values only
// appear in FLV script tags nested inside an AMF0 "avmplus-object" escape
// (marker 0x11); top-level FLV script tags are almost always plain AMF0.
const (
	amf3Undefined   = 0x00
	amf3Null        = 0x01
	amf3False       = 0x02
	amf3True        = 0x03
	amf3Integer     = 0x04
	amf3Double      = 0x05
	amf3String      = 0x06
	amf3XMLDoc      = 0x07
	amf3Date        = 0x08
	amf3Array       = 0x09
	amf3Object      = 0x0A
	amf3XML         = 0x0B
	amf3ByteArray   = 0x0C
)

// amf3Context tracks the string reference table an AMF3 byte stream builds
// up as it is decoded; string references are resolved against strings seen
// earlier in the same stream. Object, array, trait, date and byte-array
// references are not tracked and decode as nil.
type amf3Context struct {
	strings []string
}

func decodeAMF3Value(p []byte) (any, int, error) {
	ctx := &amf3Context{}
	return ctx.decode(p)
}

func (ctx *amf3Context) decode(p []byte) (any, int, error) {
	if len(p) < 1 {
		return nil, 0, ErrTruncated
	}

	switch p[0] {
	case amf3Undefined, amf3Null:
		return nil, 1, nil
	case amf3False:
		return false, 1, nil
	case amf3True:
		return true, 1, nil
	case amf3Integer:
		v, n, err := readU29(p[1:])
		return int32(v), n + 1, err
	case amf3Double:
		if len(p) < 9 {
			return nil, 0, ErrTruncated
		}
		return math.Float64frombits(binary.BigEndian.Uint64(p[1:9])), 9, nil
	case amf3String, amf3XMLDoc, amf3XML:
		s, n, err := ctx.readString(p[1:])
		return s, n + 1, err
	case amf3ByteArray:
		ref, n, err := readU29(p[1:])
		if err != nil {
			return nil, 0, err
		}
		if ref&1 == 0 {
			return nil, n + 1, nil // reference, not tracked
		}
		size := int(ref >> 1)
		start := n + 1
		if len(p) < start+size {
			return nil, 0, ErrTruncated
		}
		return append([]byte(nil), p[start:start+size]...), start + size, nil
	case amf3Date:
		ref, n, err := readU29(p[1:])
		if err != nil {
			return nil, 0, err
		}
		pos := n + 1
		if ref&1 == 0 {
			return nil, pos, nil // reference
		}
		if len(p) < pos+8 {
			return nil, 0, ErrTruncated
		}
		millis := math.Float64frombits(binary.BigEndian.Uint64(p[pos : pos+8]))
		return millis, pos + 8, nil
	case amf3Array:
		return ctx.decodeArray(p)
	case amf3Object:
		return ctx.decodeObject(p)
	default:
		return nil, 1, nil
	}
}

// readU29 decodes an AMF3 variable-length unsigned 29-bit integer.
func readU29(p []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < 3; i++ {
		if i >= len(p) {
			return 0, 0, ErrTruncated
		}
		b := p[i]
		v = (v << 7) | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	if len(p) < 4 {
		return 0, 0, ErrTruncated
	}
	v = (v << 8) | uint32(p[3])
	return v, 4, nil
}

func (ctx *amf3Context) readString(p []byte) (string, int, error) {
	ref, n, err := readU29(p)
	if err != nil {
		return "", 0, err
	}
	if ref&1 == 0 {
		idx := int(ref >> 1)
		if idx < len(ctx.strings) {
			return ctx.strings[idx], n, nil
		}
		return "", n, nil
	}
	size := int(ref >> 1)
	if len(p) < n+size {
		return "", 0, ErrTruncated
	}
	s := string(p[n : n+size])
	if s != "" {
		ctx.strings = append(ctx.strings, s)
	}
	return s, n + size, nil
}

func (ctx *amf3Context) decodeArray(p []byte) (any, int, error) {
	ref, n, err := readU29(p[1:])
	if err != nil {
		return nil, 0, err
	}
	pos := n + 1
	if ref&1 == 0 {
		return nil, pos, nil // reference, not tracked
	}
	denseLen := int(ref >> 1)

	arr := make([]any, 0, denseLen)
	assoc := make(map[string]any)

	for {
		key, kn, err := ctx.readString(p[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += kn
		if key == "" {
			break
		}
		val, vn, err := ctx.decode(p[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += vn
		assoc[key] = val
	}

	for i := 0; i < denseLen; i++ {
		val, vn, err := ctx.decode(p[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += vn
		arr = append(arr, val)
	}

	if len(assoc) == 0 {
		return arr, pos, nil
	}
	assoc["__dense__"] = arr
	return assoc, pos, nil
}

func (ctx *amf3Context) decodeObject(p []byte) (any, int, error) {
	ref, n, err := readU29(p[1:])
	if err != nil {
		return nil, 0, err
	}
	pos := n + 1
	if ref&1 == 0 {
		return nil, pos, nil // reference, not tracked
	}

	// ref: 1 (marker bit) | 1 (dynamic?) | ... traits not cached here; a
	// fresh traits block is always read since we do not keep a traits
	// reference table (uncommon for FLV onMetaData-style payloads).
	traitsInline := ref&2 != 0
	dynamic := ref&8 != 0
	var sealedCount uint32
	if traitsInline {
		sealedCount = ref >> 4
	}

	_, cn, err := ctx.readString(p[pos:]) // class name
	if err != nil {
		return nil, 0, err
	}
	pos += cn

	obj := make(map[string]any)

	for i := uint32(0); i < sealedCount; i++ {
		key, kn, err := ctx.readString(p[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += kn
		val, vn, err := ctx.decode(p[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += vn
		obj[key] = val
	}

	if dynamic {
		for {
			key, kn, err := ctx.readString(p[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += kn
			if key == "" {
				break
			}
			val, vn, err := ctx.decode(p[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += vn
			obj[key] = val
		}
	}

	return obj, pos, nil
}

// Package nalutil provides length-prefixed ("AVCC") NAL unit parsing,
// emulation-prevention-byte removal, and SEI payload decoding shared by the
// AVC and HEVC video paths.
package nalutil

import (
	"errors"
	"fmt"
)

// ErrInvalidLengthSize is returned when a length-field size outside {1,2,4}
// is requested.
var ErrInvalidLengthSize = errors.New("nalutil: length size must be 1, 2 or 4")

// ErrTruncatedNALU is returned when a declared NAL unit length runs past the
// end of the buffer.
var ErrTruncatedNALU = errors.New("nalutil: truncated NAL unit")

// ParseAVCC splits an AVCC-framed byte slice (a run of
// length-prefix + payload pairs, with no start codes) into NAL unit
// payloads. lengthSize is the number of bytes used for each length prefix,
// as carried by the AVC/HEVC DecoderConfigurationRecord (1, 2, or 4).
// Returned slices alias data; callers that need to retain them past the
// lifetime of data must copy.
func ParseAVCC(data []byte, lengthSize int) ([][]byte, error) {
	if lengthSize != 1 && lengthSize != 2 && lengthSize != 4 {
		return nil, ErrInvalidLengthSize
	}

	var units [][]byte
	pos := 0
	for pos < len(data) {
		if pos+lengthSize > len(data) {
			return nil, fmt.Errorf("%w: at offset %d", ErrTruncatedNALU, pos)
		}

		var n int
		for i := 0; i < lengthSize; i++ {
			n = n<<8 | int(data[pos+i])
		}
		pos += lengthSize

		if pos+n > len(data) {
			return nil, fmt.Errorf("%w: declared length %d at offset %d", ErrTruncatedNALU, n, pos)
		}
		units = append(units, data[pos:pos+n])
		pos += n
	}
	return units, nil
}

// RemoveEPB strips emulation-prevention bytes (0x03 occurring after two
// consecutive 0x00 bytes) from a NAL unit's RBSP. It never mutates data in
// place; it returns data unchanged (same backing array) when no EPB is
// found, and a freshly allocated buffer otherwise.
func RemoveEPB(data []byte) []byte {
	zeroRun := 0
	hasEPB := false
	for _, b := range data {
		if zeroRun >= 2 && b == 0x03 {
			hasEPB = true
			break
		}
		if b == 0x00 {
			zeroRun++
		} else {
			zeroRun = 0
		}
	}
	if !hasEPB {
		return data
	}

	out := make([]byte, 0, len(data))
	zeroRun = 0
	for _, b := range data {
		if zeroRun >= 2 && b == 0x03 {
			zeroRun = 0
			continue
		}
		if b == 0x00 {
			zeroRun++
		} else {
			zeroRun = 0
		}
		out = append(out, b)
	}
	return out
}

// SEIMessage is one decoded SEI payload: a payload type / payload size pair
// (ISO/IEC 14496-10 Annex D) and its raw body.
type SEIMessage struct {
	PayloadType int
	PayloadSize int
	Payload     []byte
}

// ParseSEI decodes all SEI messages from a full SEI NAL unit, including its
// NAL header (already stripped, by the caller, of emulation-prevention
// bytes). isHEVC selects the header width to skip before the
// payload-type/payload-size byte-continuation encoding begins: 1 byte for
// AVC (nal_unit_type + nal_ref_idc), 2 bytes for HEVC (nal_unit_type,
// nuh_layer_id, nuh_temporal_id_plus1 packed across two bytes).
func ParseSEI(nalUnit []byte, isHEVC bool) ([]SEIMessage, error) {
	headerSize := 1
	if isHEVC {
		headerSize = 2
	}
	if len(nalUnit) < headerSize {
		return nil, fmt.Errorf("nalutil: SEI NAL unit shorter than header (%d bytes)", len(nalUnit))
	}
	rbsp := nalUnit[headerSize:]
	var messages []SEIMessage

	pos := 0
	for pos < len(rbsp) {
		// rbsp_trailing_bits: a 0x80 byte where a payloadType would start
		// marks the end of the SEI messages in this NAL.
		if rbsp[pos] == 0x80 {
			break
		}

		payloadType := 0
		for {
			if pos >= len(rbsp) {
				return messages, fmt.Errorf("nalutil: truncated SEI payloadType")
			}
			b := int(rbsp[pos])
			pos++
			payloadType += b
			if b != 0xFF {
				break
			}
		}

		payloadSize := 0
		for {
			if pos >= len(rbsp) {
				return messages, fmt.Errorf("nalutil: truncated SEI payloadSize")
			}
			b := int(rbsp[pos])
			pos++
			payloadSize += b
			if b != 0xFF {
				break
			}
		}

		end := pos + payloadSize
		if end > len(rbsp) {
			end = len(rbsp)
		}
		messages = append(messages, SEIMessage{
			PayloadType: payloadType,
			PayloadSize: payloadSize,
			Payload:     rbsp[pos:end],
		})
		pos = end
	}

	return messages, nil
}

package codecconf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/jmylchreest/flvdemux/internal/bitreader"
	"github.com/jmylchreest/flvdemux/internal/nalutil"
)

// avcHighProfilesWithChromaInfo lists the AVCProfileIndication values for
// which the SPS RBSP carries the extra chroma_format_idc/bit_depth/scaling
// list fields of the "High" family profiles (H.264 §7.3.2.1.1).
var avcHighProfilesWithChromaInfo = map[uint8]bool{
	100: true, 110: true, 122: true, 244: true, 44: true, 83: true,
	86: true, 118: true, 128: true, 138: true, 139: true, 134: true, 135: true,
}

// ErrMalformedAVCRecord is returned for a truncated or structurally invalid
// AVCDecoderConfigurationRecord.
var ErrMalformedAVCRecord = errors.New("codecconf: malformed AVCDecoderConfigurationRecord")

// SPSInfo is the set of SPS-derived fields the demuxer core attaches to a
// VideoTrack, per spec §3/§6.
type SPSInfo struct {
	Codec    string
	Width    int
	Height   int
	SarRatio string
	FpsNum   int
	FpsDen   int
}

// AVCConfig is the parsed result of an AVCDecoderConfigurationRecord.
type AVCConfig struct {
	SPS         [][]byte
	PPS         [][]byte
	NALUnitSize int
	Parsed      SPSInfo
}

// ParseAVCDecoderConfigurationRecord parses an ISO/IEC 14496-15 §5.2.4.1
// AVCDecoderConfigurationRecord. The outer array/length framing is parsed
// here; SPS field extraction (width/height/framerate) is delegated to
// mediacommon's h264.SPS, which already implements the Exp-Golomb/VUI
// parsing this record's SPS payload requires.
func ParseAVCDecoderConfigurationRecord(data []byte) (*AVCConfig, error) {
	// configurationVersion(1) AVCProfileIndication(1) profile_compatibility(1)
	// AVCLevelIndication(1) reserved(6)+lengthSizeMinusOne(2) (1)
	// reserved(3)+numOfSequenceParameterSets(5) (1)
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: record too short (%d bytes)", ErrMalformedAVCRecord, len(data))
	}

	lengthSize := int(data[4]&0x03) + 1
	numSPS := int(data[5] & 0x1F)
	pos := 6

	cfg := &AVCConfig{NALUnitSize: lengthSize}

	for i := 0; i < numSPS; i++ {
		nal, next, err := readLengthPrefixedU16(data, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: sps[%d]: %v", ErrMalformedAVCRecord, i, err)
		}
		cfg.SPS = append(cfg.SPS, nal)
		pos = next
	}

	if pos >= len(data) {
		return nil, fmt.Errorf("%w: missing numOfPictureParameterSets", ErrMalformedAVCRecord)
	}
	numPPS := int(data[pos])
	pos++

	for i := 0; i < numPPS; i++ {
		nal, next, err := readLengthPrefixedU16(data, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: pps[%d]: %v", ErrMalformedAVCRecord, i, err)
		}
		cfg.PPS = append(cfg.PPS, nal)
		pos = next
	}

	if len(cfg.SPS) > 0 {
		cfg.Parsed = parseAVCSPS(cfg.SPS[0])
	}

	return cfg, nil
}

func parseAVCSPS(sps []byte) SPSInfo {
	info := SPSInfo{Codec: "avc1"}

	info.SarRatio = parseAVCSAR(sps)
	if info.SarRatio == "" {
		info.SarRatio = "1:1"
	}

	var parsed h264.SPS
	if err := parsed.Unmarshal(sps); err != nil {
		return info
	}

	info.Width = parsed.Width()
	info.Height = parsed.Height()
	if fps := parsed.FPS(); fps > 0 {
		info.FpsNum, info.FpsDen = rationalizeFPS(fps)
	}
	return info
}

// parseAVCSAR walks the AVC SPS RBSP (H.264 §7.3.2.1.1) by hand up through
// vui_parameters() to recover the sample aspect ratio mediacommon's h264.SPS
// does not expose. sps is the full NAL unit, 1-byte header included, exactly
// as carried by the AVCDecoderConfigurationRecord.
func parseAVCSAR(sps []byte) string {
	rbsp := nalutil.RemoveEPB(sps)
	if len(rbsp) < 2 {
		return ""
	}

	w := &bitWalk{r: bitreader.New(rbsp[1:])} // skip the 1-byte NAL header
	profileIDC := uint8(w.bits(8))
	w.bits(8) // constraint_set0..5_flag + reserved_zero_2bits
	w.bits(8) // level_idc
	w.ue()    // seq_parameter_set_id

	if avcHighProfilesWithChromaInfo[profileIDC] {
		chromaFormatIDC := w.ue()
		if chromaFormatIDC == 3 {
			w.bit() // separate_colour_plane_flag
		}
		w.ue() // bit_depth_luma_minus8
		w.ue() // bit_depth_chroma_minus8
		w.bit() // qpprime_y_zero_transform_bypass_flag
		if w.bit() { // seq_scaling_matrix_present_flag
			n := 8
			if chromaFormatIDC == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				if w.bit() {
					size := 16
					if i >= 6 {
						size = 64
					}
					w.skipScalingList(size)
				}
			}
		}
	}

	w.ue() // log2_max_frame_num_minus4
	picOrderCntType := w.ue()
	switch picOrderCntType {
	case 0:
		w.ue() // log2_max_pic_order_cnt_lsb_minus4
	case 1:
		w.bit() // delta_pic_order_always_zero_flag
		w.se()  // offset_for_non_ref_pic
		w.se()  // offset_for_top_to_bottom_field
		n := w.ue()
		for i := uint32(0); i < n && w.err == nil; i++ {
			w.se() // offset_for_ref_frame[i]
		}
	}

	w.ue()  // max_num_ref_frames
	w.bit() // gaps_in_frame_num_value_allowed_flag
	w.ue()  // pic_width_in_mbs_minus1
	w.ue()  // pic_height_in_map_units_minus1
	if !w.bit() { // frame_mbs_only_flag
		w.bit() // mb_adaptive_frame_field_flag
	}
	w.bit() // direct_8x8_inference_flag
	if w.bit() { // frame_cropping_flag
		w.ue() // frame_crop_left_offset
		w.ue() // frame_crop_right_offset
		w.ue() // frame_crop_top_offset
		w.ue() // frame_crop_bottom_offset
	}

	if !w.bit() { // vui_parameters_present_flag
		return ""
	}
	if w.err != nil {
		return ""
	}
	return w.aspectRatioInfo()
}

// readLengthPrefixedU16 reads a u16 length followed by that many bytes at
// offset pos, returning the slice and the offset immediately after it.
func readLengthPrefixedU16(data []byte, pos int) ([]byte, int, error) {
	if pos+2 > len(data) {
		return nil, 0, errors.New("truncated length prefix")
	}
	n := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+n > len(data) {
		return nil, 0, errors.New("truncated payload")
	}
	return data[pos : pos+n], pos + n, nil
}

// rationalizeFPS turns a float frame rate (as reported by mediacommon) into
// a num/den pair with a fixed, predictable denominator.
func rationalizeFPS(fps float64) (num, den int) {
	const den1000 = 1000
	return int(fps*den1000 + 0.5), den1000
}

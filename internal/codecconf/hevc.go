package codecconf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/jmylchreest/flvdemux/internal/bitreader"
	"github.com/jmylchreest/flvdemux/internal/nalutil"
)

// ErrMalformedHEVCRecord is returned for a truncated or structurally invalid
// HEVCDecoderConfigurationRecord.
var ErrMalformedHEVCRecord = errors.New("codecconf: malformed HEVCDecoderConfigurationRecord")

// hevcConfigFixedHeaderSize is the size, in bytes, of the fixed portion of
// an ISO/IEC 14496-15 §8.3.3.1.2 HEVCDecoderConfigurationRecord, up to and
// including numOfArrays.
const hevcConfigFixedHeaderSize = 23

// HEVC NAL unit types carried in the configuration record's arrays.
const (
	hevcNALUTypeVPS = 32
	hevcNALUTypeSPS = 33
	hevcNALUTypePPS = 34
)

// HEVCConfig is the parsed result of a HEVCDecoderConfigurationRecord.
type HEVCConfig struct {
	VPS         [][]byte
	SPS         [][]byte
	PPS         [][]byte
	NALUnitSize int
	HVCC        []byte // the raw, unparsed record, retained verbatim
	Parsed      SPSInfo
}

// ParseHEVCDecoderConfigurationRecord parses an ISO/IEC 14496-15 §8.3.3.1.2
// HEVCDecoderConfigurationRecord: a 22-byte fixed header, a numOfArrays
// count, then per array an (arrayCompleteness, NAL_unit_type, numNalus)
// triple followed by that many length-prefixed NAL units. SPS field
// extraction is delegated to mediacommon's h265.SPS.
func ParseHEVCDecoderConfigurationRecord(data []byte) (*HEVCConfig, error) {
	if len(data) < hevcConfigFixedHeaderSize {
		return nil, fmt.Errorf("%w: record too short (%d bytes)", ErrMalformedHEVCRecord, len(data))
	}

	cfg := &HEVCConfig{
		NALUnitSize: int(data[21]&0x03) + 1,
		HVCC:        append([]byte(nil), data...),
	}

	numArrays := int(data[22])
	pos := hevcConfigFixedHeaderSize

	for i := 0; i < numArrays; i++ {
		if pos+3 > len(data) {
			return nil, fmt.Errorf("%w: array[%d] header truncated", ErrMalformedHEVCRecord, i)
		}
		naluType := data[pos] & 0x3F
		numNalus := int(binary.BigEndian.Uint16(data[pos+1 : pos+3]))
		pos += 3

		for j := 0; j < numNalus; j++ {
			nal, next, err := readLengthPrefixedU16(data, pos)
			if err != nil {
				return nil, fmt.Errorf("%w: array[%d] nalu[%d]: %v", ErrMalformedHEVCRecord, i, j, err)
			}
			pos = next

			switch naluType {
			case hevcNALUTypeVPS:
				cfg.VPS = append(cfg.VPS, nal)
			case hevcNALUTypeSPS:
				cfg.SPS = append(cfg.SPS, nal)
			case hevcNALUTypePPS:
				cfg.PPS = append(cfg.PPS, nal)
			}
		}
	}

	if len(cfg.SPS) > 0 {
		cfg.Parsed = parseHEVCSPS(cfg.SPS[0])
	}

	return cfg, nil
}

func parseHEVCSPS(sps []byte) SPSInfo {
	info := SPSInfo{Codec: "hvc1"}

	info.SarRatio = parseHEVCSAR(sps)
	if info.SarRatio == "" {
		info.SarRatio = "1:1"
	}

	var parsed h265.SPS
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

// parseHEVCSAR walks the HEVC SPS RBSP (H.265 §7.3.2.2.1) by hand up through
// vui_parameters() to recover the sample aspect ratio mediacommon's h265.SPS
// does not expose. sps is the full NAL unit, 2-byte header included, exactly
// as carried by the HEVCDecoderConfigurationRecord.
func parseHEVCSAR(sps []byte) string {
	rbsp := nalutil.RemoveEPB(sps)
	if len(rbsp) < 3 {
		return ""
	}

	w := &bitWalk{r: bitreader.New(rbsp[2:])} // skip the 2-byte NAL header
	w.bits(4)                                 // sps_video_parameter_set_id
	maxSubLayersMinus1 := w.bits(3)
	w.bit() // sps_temporal_id_nesting_flag

	skipHEVCProfileTierLevel(w, true, maxSubLayersMinus1)

	w.ue() // sps_seq_parameter_set_id
	chromaFormatIDC := w.ue()
	if chromaFormatIDC == 3 {
		w.bit() // separate_colour_plane_flag
	}
	w.ue() // pic_width_in_luma_samples
	w.ue() // pic_height_in_luma_samples
	if w.bit() { // conformance_window_flag
		w.ue() // conf_win_left_offset
		w.ue() // conf_win_right_offset
		w.ue() // conf_win_top_offset
		w.ue() // conf_win_bottom_offset
	}
	w.ue() // bit_depth_luma_minus8
	w.ue() // bit_depth_chroma_minus8
	log2MaxPicOrderCntLSBMinus4 := w.ue()

	subLayerOrderingInfoPresent := w.bit()
	start := maxSubLayersMinus1
	if subLayerOrderingInfoPresent {
		start = 0
	}
	for i := start; i <= maxSubLayersMinus1 && w.err == nil; i++ {
		w.ue() // sps_max_dec_pic_buffering_minus1[i]
		w.ue() // sps_max_num_reorder_pics[i]
		w.ue() // sps_max_latency_increase_plus1[i]
	}

	w.ue() // log2_min_luma_coding_block_size_minus3
	w.ue() // log2_diff_max_min_luma_coding_block_size
	w.ue() // log2_min_luma_transform_block_size_minus2
	w.ue() // log2_diff_max_min_luma_transform_block_size
	w.ue() // max_transform_hierarchy_depth_inter
	w.ue() // max_transform_hierarchy_depth_intra

	if w.bit() { // scaling_list_enabled_flag
		if w.bit() { // sps_scaling_list_data_present_flag
			skipHEVCScalingListData(w)
		}
	}

	w.bit() // amp_enabled_flag
	w.bit() // sample_adaptive_offset_enabled_flag
	if w.bit() { // pcm_enabled_flag
		w.bits(4) // pcm_sample_bit_depth_luma_minus1
		w.bits(4) // pcm_sample_bit_depth_chroma_minus1
		w.ue()    // log2_min_pcm_luma_coding_block_size_minus3
		w.ue()    // log2_diff_max_min_pcm_luma_coding_block_size
		w.bit()   // pcm_loop_filter_disabled_flag
	}

	numShortTermRefPicSets := w.ue()
	numDeltaPocs := make([]uint32, 0, numShortTermRefPicSets)
	for i := uint32(0); i < numShortTermRefPicSets && w.err == nil; i++ {
		numDeltaPocs = append(numDeltaPocs, skipHEVCShortTermRefPicSet(w, int(i), numDeltaPocs))
	}

	if w.bit() { // long_term_ref_pics_present_flag
		numLongTerm := w.ue()
		pocLsbBits := int(log2MaxPicOrderCntLSBMinus4) + 4
		for i := uint32(0); i < numLongTerm && w.err == nil; i++ {
			w.bits(pocLsbBits) // lt_ref_pic_poc_lsb_sps[i]
			w.bit()            // used_by_curr_pic_lt_sps_flag[i]
		}
	}

	w.bit() // sps_temporal_mvp_enabled_flag
	w.bit() // strong_intra_smoothing_enabled_flag

	if !w.bit() { // vui_parameters_present_flag
		return ""
	}
	if w.err != nil {
		return ""
	}
	return w.aspectRatioInfo()
}

// skipHEVCProfileTierLevel advances past profile_tier_level() (H.265
// §7.3.3), which precedes the SPS's own fields and has a fixed 12-byte
// general section plus a variable per-sub-layer tail.
func skipHEVCProfileTierLevel(w *bitWalk, profilePresentFlag bool, maxNumSubLayersMinus1 uint32) {
	if profilePresentFlag {
		w.bits(2)  // general_profile_space
		w.bit()    // general_tier_flag
		w.bits(5)  // general_profile_idc
		w.bits(32) // general_profile_compatibility_flag[32]
		w.bits(4)  // progressive/interlaced/non_packed/frame_only_constraint_flag
		w.bits(32) // general_reserved_zero_43bits (part 1)
		w.bits(12) // general_reserved_zero_43bits (part 2, 11 bits) + general_inbld_flag/reserved_zero_bit (1 bit)
	}
	w.bits(8) // general_level_idc

	subLayerProfilePresent := make([]bool, maxNumSubLayersMinus1)
	subLayerLevelPresent := make([]bool, maxNumSubLayersMinus1)
	for i := uint32(0); i < maxNumSubLayersMinus1 && w.err == nil; i++ {
		subLayerProfilePresent[i] = w.bit()
		subLayerLevelPresent[i] = w.bit()
	}
	if maxNumSubLayersMinus1 > 0 {
		for i := maxNumSubLayersMinus1; i < 8 && w.err == nil; i++ {
			w.bits(2) // reserved_zero_2bits[i]
		}
	}
	for i := uint32(0); i < maxNumSubLayersMinus1 && w.err == nil; i++ {
		if subLayerProfilePresent[i] {
			w.bits(2)  // sub_layer_profile_space[i]
			w.bit()    // sub_layer_tier_flag[i]
			w.bits(5)  // sub_layer_profile_idc[i]
			w.bits(32) // sub_layer_profile_compatibility_flag[i][32]
			w.bits(4)  // sub_layer_{progressive,interlaced,non_packed,frame_only}_source_flag
			w.bits(32) // sub_layer_reserved_zero_43bits (part 1)
			w.bits(12) // sub_layer_reserved_zero_43bits (part 2) + sub_layer_inbld_flag/reserved_zero_bit
		}
		if subLayerLevelPresent[i] {
			w.bits(8) // sub_layer_level_idc[i]
		}
	}
}

// skipHEVCScalingListData advances past scaling_list_data() (H.265 §7.3.4).
func skipHEVCScalingListData(w *bitWalk) {
	for sizeID := 0; sizeID < 4; sizeID++ {
		step := 1
		if sizeID == 3 {
			step = 3
		}
		for matrixID := 0; matrixID < 6 && w.err == nil; matrixID += step {
			if !w.bit() { // scaling_list_pred_mode_flag
				w.ue() // scaling_list_pred_matrix_id_delta
				continue
			}
			coefNum := 64
			if sizeID == 0 {
				coefNum = 16
			}
			if sizeID > 1 {
				w.se() // scaling_list_dc_coef_minus8
			}
			for i := 0; i < coefNum && w.err == nil; i++ {
				w.se() // scaling_list_delta_coef
			}
		}
	}
}

// skipHEVCShortTermRefPicSet advances past short_term_ref_pic_set(stRpsIdx)
// (H.265 §7.3.7) and returns its NumDeltaPocs, needed as the loop bound for
// any later set that inter-predicts against this one.
func skipHEVCShortTermRefPicSet(w *bitWalk, stRpsIdx int, numDeltaPocs []uint32) uint32 {
	interPredict := false
	if stRpsIdx != 0 {
		interPredict = w.bit()
	}

	if interPredict {
		deltaIdxMinus1 := uint32(0)
		// deltaIdxMinus1 is only coded for the implicit (stRpsIdx ==
		// num_short_term_ref_pic_sets) case used by slice headers; within
		// the SPS loop stRpsIdx is always a valid index so it's absent.
		w.bit() // delta_rps_sign
		w.ue()  // abs_delta_rps_minus1
		refIdx := stRpsIdx - int(deltaIdxMinus1) - 1
		refNumDeltaPocs := uint32(0)
		if refIdx >= 0 && refIdx < len(numDeltaPocs) {
			refNumDeltaPocs = numDeltaPocs[refIdx]
		}

		var retained uint32
		for j := uint32(0); j <= refNumDeltaPocs && w.err == nil; j++ {
			used := w.bit() // used_by_curr_pic_flag[j]
			useDelta := true
			if !used {
				useDelta = w.bit() // use_delta_flag[j]
			}
			if used || useDelta {
				retained++
			}
		}
		return retained
	}

	numNegative := w.ue()
	numPositive := w.ue()
	for i := uint32(0); i < numNegative && w.err == nil; i++ {
		w.ue()  // delta_poc_s0_minus1[i]
		w.bit() // used_by_curr_pic_s0_flag[i]
	}
	for i := uint32(0); i < numPositive && w.err == nil; i++ {
		w.ue()  // delta_poc_s1_minus1[i]
		w.bit() // used_by_curr_pic_s1_flag[i]
	}
	return numNegative + numPositive
}

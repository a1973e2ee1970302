package codecconf

import (
	"fmt"

	"github.com/jmylchreest/flvdemux/internal/bitreader"
)

// sarTable maps the standard aspect_ratio_idc values of Table E-1 (ITU-T
// H.264/H.265 Annex E) to their sample aspect ratio. 0 is reserved, and
// extendedSAR (255) carries an explicit sar_width/sar_height pair instead of
// a table lookup.
var sarTable = map[uint32]string{
	1: "1:1", 2: "12:11", 3: "10:11", 4: "16:11", 5: "40:33", 6: "24:11",
	7: "20:11", 8: "32:11", 9: "80:33", 10: "18:11", 11: "15:11", 12: "64:33",
	13: "160:99", 14: "4:3", 15: "3:2", 16: "2:1",
}

const extendedSAR = 255

// bitWalk wraps a bitreader.Reader with a sticky error, so a long run of
// sequential SPS field reads doesn't need an error check after every call;
// once one read fails, subsequent reads become no-ops and the err field
// holds the first failure.
type bitWalk struct {
	r   *bitreader.Reader
	err error
}

func (w *bitWalk) bits(n int) uint32 {
	if w.err != nil {
		return 0
	}
	v, err := w.r.ReadBits(n)
	if err != nil {
		w.err = err
	}
	return v
}

func (w *bitWalk) bit() bool {
	return w.bits(1) == 1
}

func (w *bitWalk) ue() uint32 {
	if w.err != nil {
		return 0
	}
	v, err := w.r.ReadUE()
	if err != nil {
		w.err = err
	}
	return v
}

func (w *bitWalk) se() int32 {
	if w.err != nil {
		return 0
	}
	v, err := w.r.ReadSE()
	if err != nil {
		w.err = err
	}
	return v
}

func (w *bitWalk) skipScalingList(size int) {
	if w.err != nil {
		return
	}
	if err := w.r.SkipScalingList(size); err != nil {
		w.err = err
	}
}

// aspectRatioInfo reads the aspect_ratio_info_present_flag / aspect_ratio_idc
// / sar_width / sar_height fields shared verbatim between the AVC and HEVC
// VUI syntax (H.264 Annex E.1.1, H.265 Annex E.2.1), returning the "num:den"
// sample aspect ratio or "" when unspecified or undecodable.
func (w *bitWalk) aspectRatioInfo() string {
	if !w.bit() {
		return ""
	}
	idc := w.bits(8)
	if idc == extendedSAR {
		width := w.bits(16)
		height := w.bits(16)
		if w.err != nil || width == 0 || height == 0 {
			return ""
		}
		return fmt.Sprintf("%d:%d", width, height)
	}
	return sarTable[idc]
}

// Package fixer implements the downstream track normalizer that spec §1
// treats as an external collaborator of the FLV demuxer core: it applies a
// start-time offset and enforces monotonic video DTS within a contiguous
// session, but never reparses container bytes. Timestamp gaps are left as
// they are.
package fixer

import (
	"log/slog"

	"github.com/jmylchreest/flvdemux/flv"
	"github.com/jmylchreest/flvdemux/internal/observability"
)

// TimestampFixer is a minimal flv.Fixer: it clamps non-monotonic video
// DTS forward (logging when it does) and resets its carried state on
// discontinuity. It does not attempt gap interpolation or re-encoding,
// which spec's Non-goals explicitly exclude.
type TimestampFixer struct {
	Logger *slog.Logger

	lastVideoDTS int64
	haveVideoDTS bool
}

// Fix implements flv.Fixer.
func (f *TimestampFixer) Fix(d *flv.Demuxer, startTime int64, discontinuity, contiguous bool) error {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "fixer")

	if discontinuity || !contiguous {
		f.haveVideoDTS = false
	}

	for i := range d.Video.Samples {
		s := &d.Video.Samples[i]
		s.DTS += startTime
		s.PTS += startTime

		if f.haveVideoDTS && s.DTS < f.lastVideoDTS {
			logger.Warn("non-monotonic video DTS, clamping forward",
				slog.Int64("dts", s.DTS), slog.Int64("lastDts", f.lastVideoDTS))
			s.DTS = f.lastVideoDTS
		}
		f.lastVideoDTS = s.DTS
		f.haveVideoDTS = true
	}

	for i := range d.Audio.Samples {
		d.Audio.Samples[i].PTS += startTime
	}

	return nil
}

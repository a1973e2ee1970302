package flv

// Fixer is the downstream track-normalizer collaborator spec §1/§4.7
// treats as external to the core: it may rewrite timestamps or close
// gaps, but it never mutates the cross-call state Demux owns.
type Fixer interface {
	Fix(d *Demuxer, startTime int64, discontinuity, contiguous bool) error
}

// Fix delegates to f with the demuxer's current tracks and returns
// whatever error f reports. It does not touch Demux's own state.
func (d *Demuxer) Fix(f Fixer, startTime int64, discontinuity, contiguous bool) error {
	return f.Fix(d, startTime, discontinuity, contiguous)
}

// DemuxAndFix composes Demux and Fix, per spec §4.7.
func (d *Demuxer) DemuxAndFix(f Fixer, data []byte, startTime int64, discontinuity, contiguous bool) error {
	if err := d.Demux(data, discontinuity, contiguous); err != nil {
		return err
	}
	return f.Fix(d, startTime, discontinuity, contiguous)
}

package flv

import "log/slog"

// parseScript implements spec §4.6: decode an AMF0/AMF3 script tag body
// via the AMF collaborator and record it on the metadata track.
func (d *Demuxer) parseScript(body []byte, pts int64) {
	values, err := d.amf.Parse(body)
	if err != nil && len(values) == 0 {
		d.logger.Warn("malformed AMF script tag", slog.String("error", err.Error()))
		return
	}
	d.Metadata.FlvScriptSamples = append(d.Metadata.FlvScriptSamples, FlvScriptSample{PTS: pts, Value: values})
}

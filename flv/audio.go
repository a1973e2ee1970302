package flv

import "log/slog"

// parseAudio implements spec §4.3: interpret one audio tag body and update
// the audio track's configuration or sample list.
func (d *Demuxer) parseAudio(body []byte, pts int64) {
	if len(body) < 1 {
		d.Audio.warn("empty audio tag body")
		return
	}

	format := body[0] >> 4

	switch format {
	case audioFormatG711ALaw, audioFormatG711MuLaw:
		d.parseG711(body, pts, format)
	case audioFormatAAC:
		d.parseAAC(body, pts)
	default:
		d.logger.Warn("unsupported audio format", slog.Int("format", int(format)))
		d.resetAudioTrack()
		d.Audio.warn("unsupported audio format")
	}
}

func (d *Demuxer) parseG711(body []byte, pts int64, format byte) {
	flags := body[0]
	sampleSizeBit := (flags >> 1) & 0x01
	channelsBit := flags & 0x01

	// The rate/size/channel nibble is still present in G.711 tags for
	// framing-compatibility with other formats, but G.711 always runs at
	// a fixed 8kHz sample rate regardless of the rate bits.
	d.Audio.SampleRate = 8000
	if sampleSizeBit == 1 {
		d.Audio.SampleSize = 16
	} else {
		d.Audio.SampleSize = 8
	}
	if channelsBit == 1 {
		d.Audio.ChannelCount = 2
	} else {
		d.Audio.ChannelCount = 1
	}

	if format == audioFormatG711ALaw {
		d.Audio.Codec = AudioCodecG711ALaw
		d.Audio.CodecStr = "g711a"
	} else {
		d.Audio.Codec = AudioCodecG711MuLaw
		d.Audio.CodecStr = "g711mu"
	}

	if len(body) > 1 {
		d.Audio.Samples = append(d.Audio.Samples, AudioSample{PTS: pts, Data: body[1:]})
	}
}

func (d *Demuxer) parseAAC(body []byte, pts int64) {
	if len(body) < 2 {
		d.Audio.warn("truncated AAC audio tag")
		return
	}

	packetType := body[1]
	switch packetType {
	case aacPacketTypeSequenceHeader:
		cfg, err := d.codecs.ParseAudioSpecificConfig(body[2:])
		if err != nil {
			d.logger.Warn("malformed AudioSpecificConfig", slog.String("error", err.Error()))
			d.resetAudioTrack()
			d.Audio.warn("malformed AudioSpecificConfig")
			return
		}
		d.Audio.Codec = AudioCodecAAC
		d.Audio.CodecStr = cfg.Codec
		d.Audio.ChannelCount = cfg.ChannelCount
		d.Audio.SampleRate = cfg.SampleRate
		d.Audio.Config = cfg.Config
		d.Audio.ObjectType = cfg.ObjectType
		d.Audio.SamplingFrequencyIndex = cfg.SamplingFrequencyIndex

	case aacPacketTypeRawFrame:
		// Go's pts is always a defined int64 (there is no undefined
		// timestamp over a byte-stream tag), so every raw frame is kept.
		d.Audio.Samples = append(d.Audio.Samples, AudioSample{PTS: pts, Data: body[2:]})

	default:
		d.logger.Warn("unknown AACPacketType", slog.Int("packetType", int(packetType)))
		d.Audio.warn("unknown AACPacketType")
	}
}

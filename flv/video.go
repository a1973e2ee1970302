package flv

import "log/slog"

// parseVideo implements spec §4.4: interpret one video tag body, updating
// either the video track's configuration (sequence header) or its sample
// list (NALU payload).
func (d *Demuxer) parseVideo(body []byte, dts int64) {
	if len(body) < 6 {
		d.Video.warn("truncated video tag body")
		return
	}

	frameType := body[0] >> 4
	codecID := body[0] & 0x0F

	var codec VideoCodec
	switch codecID {
	case videoCodecIDAVC:
		codec = VideoCodecAVC
	case videoCodecIDHEVC:
		codec = VideoCodecHEVC
	default:
		d.logger.Warn("unsupported video codec ID", slog.Int("codecId", int(codecID)))
		d.resetVideoTrack()
		d.Video.warn("unsupported video codec ID")
		return
	}

	packetType := body[1]
	cts := int32(uint32(body[2])<<24|uint32(body[3])<<16|uint32(body[4])<<8) >> 8

	switch packetType {
	case videoPacketTypeSequenceHeader:
		d.parseVideoSequenceHeader(body[5:], codec)
	case videoPacketTypeNALU:
		d.parseVideoNALU(body[5:], dts, int64(cts), frameType == 1, codec)
	case videoPacketTypeEndOfSequence:
		// No-op.
	default:
		d.logger.Warn("unknown video packetType", slog.Int("packetType", int(packetType)))
		d.Video.warn("unknown video packetType")
	}
}

func (d *Demuxer) parseVideoSequenceHeader(record []byte, codec VideoCodec) {
	var result *VideoConfigResult
	var err error

	switch codec {
	case VideoCodecAVC:
		result, err = d.codecs.ParseAVCDecoderConfigurationRecord(record)
	case VideoCodecHEVC:
		result, err = d.codecs.ParseHEVCDecoderConfigurationRecord(record)
	}
	if err != nil {
		d.logger.Warn("malformed decoder configuration record",
			slog.String("codec", codec.String()), slog.String("error", err.Error()))
		d.Video.warn("malformed decoder configuration record")
		return
	}

	d.Video.Codec = codec
	if d.Video.HVCC == nil && len(result.HVCC) > 0 {
		d.Video.HVCC = result.HVCC
	}
	if result.ParsedSPS.Codec != "" {
		d.Video.CodecStr = result.ParsedSPS.Codec
	}
	if result.ParsedSPS.Width > 0 {
		d.Video.Width = result.ParsedSPS.Width
	}
	if result.ParsedSPS.Height > 0 {
		d.Video.Height = result.ParsedSPS.Height
	}
	if result.ParsedSPS.SarRatio != "" {
		d.Video.SarRatio = result.ParsedSPS.SarRatio
	}
	if result.ParsedSPS.FpsNum > 0 {
		d.Video.FpsNum = result.ParsedSPS.FpsNum
	}
	if result.ParsedSPS.FpsDen > 0 {
		d.Video.FpsDen = result.ParsedSPS.FpsDen
	}
	if len(result.SPS) > 0 {
		d.Video.SPS = result.SPS
	}
	if len(result.PPS) > 0 {
		d.Video.PPS = result.PPS
	}
	if len(result.VPS) > 0 {
		d.Video.VPS = result.VPS
	}
	if result.NALUnitSize > 0 {
		d.Video.NALUnitSize = result.NALUnitSize
	}
}

func (d *Demuxer) parseVideoNALU(payload []byte, dts, cts int64, keyframeFrameType bool, codec VideoCodec) {
	nalUnitSize := d.Video.NALUnitSize
	if nalUnitSize == 0 {
		nalUnitSize = 4
	}

	units, err := d.codecs.ParseAvcC(payload, nalUnitSize)
	if err != nil {
		d.logger.Warn("malformed AVCC NALU payload", slog.String("error", err.Error()))
		d.Video.warn("malformed AVCC NALU payload")
		return
	}

	units = d.applyHEVCLatch(units, codec)

	if len(units) == 0 {
		d.Video.warn("empty NAL unit list")
		return
	}

	sample := VideoSample{
		PTS:      dts + cts,
		DTS:      dts,
		Units:    units,
		Keyframe: keyframeFrameType,
	}

	for _, unit := range units {
		if len(unit) == 0 {
			continue
		}

		var naluType int
		if codec == VideoCodecAVC {
			naluType = int(unit[0] & 0x1F)
		} else {
			naluType = int(unit[0]>>1) & 0x3F
		}

		if codec == VideoCodecAVC && naluType == avcNALUTypeIDR {
			sample.Keyframe = true
		} else if codec == VideoCodecHEVC && hevcKeyframeNALUTypes[naluType] {
			sample.Keyframe = true
		}

		isSEI := (codec == VideoCodecAVC && naluType == avcNALUTypeSEI) ||
			(codec == VideoCodecHEVC && hevcSEINALUTypes[naluType])
		if isSEI {
			d.appendSEISample(unit, codec, sample.PTS)
		}
	}

	if sample.Keyframe {
		d.gopID++
	}
	sample.GopID = d.gopID

	d.Video.Samples = append(d.Video.Samples, sample)
}

func (d *Demuxer) appendSEISample(unit []byte, codec VideoCodec, pts int64) {
	nalUnit := d.codecs.RemoveEPB(unit)
	msgs, err := d.codecs.ParseSEI(nalUnit, codec == VideoCodecHEVC)
	if err != nil {
		d.logger.Warn("malformed SEI NAL", slog.String("error", err.Error()))
		return
	}
	d.Metadata.SeiSamples = append(d.Metadata.SeiSamples, SeiSample{PTS: pts, Messages: msgs})
}

// applyHEVCLatch implements spec §4.5. For AVC it unconditionally clears
// the latch and returns units unchanged.
func (d *Demuxer) applyHEVCLatch(units [][]byte, codec VideoCodec) [][]byte {
	if codec != VideoCodecHEVC {
		d.needAddMetaBeforeKeyFrameNal = false
		return units
	}

	for _, unit := range units {
		if len(unit) == 0 {
			continue
		}
		if int(unit[0]>>1)&0x3F == hevcNALUTypeVPS {
			d.needAddMetaBeforeKeyFrameNal = false
			return units
		}
	}

	if !d.needAddMetaBeforeKeyFrameNal {
		return units
	}

	var prefix [][]byte
	if len(d.Video.VPS) > 0 {
		prefix = append(prefix, d.Video.VPS[0])
	}
	if len(d.Video.SPS) > 0 {
		prefix = append(prefix, d.Video.SPS[0])
	}
	if len(d.Video.PPS) > 0 {
		prefix = append(prefix, d.Video.PPS[0])
	}
	d.needAddMetaBeforeKeyFrameNal = false

	return append(prefix, units...)
}

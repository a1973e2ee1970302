package flv

import (
	"github.com/jmylchreest/flvdemux/internal/amf"
	"github.com/jmylchreest/flvdemux/internal/codecconf"
	"github.com/jmylchreest/flvdemux/internal/nalutil"
)

// SPSInfo mirrors codecconf.SPSInfo in the flv package's public surface so
// callers never need to import an internal package.
type SPSInfo struct {
	Codec    string
	Width    int
	Height   int
	SarRatio string
	FpsNum   int
	FpsDen   int
}

// AACConfigResult is the AAC collaborator's output, per spec §6.
type AACConfigResult struct {
	Codec                  string
	ChannelCount           int
	SampleRate             int
	Config                 []byte
	ObjectType             int
	SamplingFrequencyIndex int
}

// VideoConfigResult is the AVC/HEVC collaborator's output, per spec §6.
type VideoConfigResult struct {
	HVCC        []byte
	SPS         [][]byte
	PPS         [][]byte
	VPS         [][]byte
	NALUnitSize int
	ParsedSPS   SPSInfo
}

// Codecs is the capability interface spec §9 requires the core be built
// against, so it can be unit-tested with fakes instead of real bitstream
// parsers.
type Codecs interface {
	ParseAudioSpecificConfig(data []byte) (*AACConfigResult, error)
	ParseAVCDecoderConfigurationRecord(data []byte) (*VideoConfigResult, error)
	ParseHEVCDecoderConfigurationRecord(data []byte) (*VideoConfigResult, error)
	ParseAvcC(data []byte, lengthSize int) ([][]byte, error)
	RemoveEPB(data []byte) []byte
	ParseSEI(data []byte, isHEVC bool) ([]SeiMessage, error)
}

// AMFParser is the AMF0/AMF3 collaborator's capability surface.
type AMFParser interface {
	Parse(data []byte) ([]any, error)
}

// defaultCodecs wires the Codecs interface to this repository's own
// internal/codecconf and internal/nalutil packages, which in turn delegate
// SPS width/height/frame-rate parsing to mediacommon's h264.SPS/h265.SPS
// and read the VUI sample aspect ratio themselves.
type defaultCodecs struct{}

func (defaultCodecs) ParseAudioSpecificConfig(data []byte) (*AACConfigResult, error) {
	cfg, err := codecconf.ParseAudioSpecificConfig(data)
	if err != nil {
		return nil, err
	}
	return &AACConfigResult{
		Codec:                  cfg.Codec,
		ChannelCount:           cfg.ChannelCount,
		SampleRate:             cfg.SampleRate,
		Config:                 cfg.Config,
		ObjectType:             cfg.ObjectType,
		SamplingFrequencyIndex: cfg.SamplingFrequencyIndex,
	}, nil
}

func (defaultCodecs) ParseAVCDecoderConfigurationRecord(data []byte) (*VideoConfigResult, error) {
	cfg, err := codecconf.ParseAVCDecoderConfigurationRecord(data)
	if err != nil {
		return nil, err
	}
	return &VideoConfigResult{
		SPS:         cfg.SPS,
		PPS:         cfg.PPS,
		NALUnitSize: cfg.NALUnitSize,
		ParsedSPS:   SPSInfo(cfg.Parsed),
	}, nil
}

func (defaultCodecs) ParseHEVCDecoderConfigurationRecord(data []byte) (*VideoConfigResult, error) {
	cfg, err := codecconf.ParseHEVCDecoderConfigurationRecord(data)
	if err != nil {
		return nil, err
	}
	return &VideoConfigResult{
		HVCC:        cfg.HVCC,
		SPS:         cfg.SPS,
		PPS:         cfg.PPS,
		VPS:         cfg.VPS,
		NALUnitSize: cfg.NALUnitSize,
		ParsedSPS:   SPSInfo(cfg.Parsed),
	}, nil
}

func (defaultCodecs) ParseAvcC(data []byte, lengthSize int) ([][]byte, error) {
	return nalutil.ParseAVCC(data, lengthSize)
}

func (defaultCodecs) RemoveEPB(data []byte) []byte {
	return nalutil.RemoveEPB(data)
}

func (defaultCodecs) ParseSEI(data []byte, isHEVC bool) ([]SeiMessage, error) {
	msgs, err := nalutil.ParseSEI(data, isHEVC)
	if err != nil {
		return nil, err
	}
	out := make([]SeiMessage, len(msgs))
	for i, m := range msgs {
		out[i] = SeiMessage{PayloadType: m.PayloadType, PayloadSize: m.PayloadSize, Payload: m.Payload}
	}
	return out, nil
}

// defaultAMFParser wires AMFParser to this repository's own internal/amf
// package, since no importable AMF0/AMF3 decoder exists in the dependency
// corpus for this domain.
type defaultAMFParser struct{}

func (defaultAMFParser) Parse(data []byte) ([]any, error) {
	return amf.Parse(data)
}

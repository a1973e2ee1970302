package codecconf

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
)

// aacSampleRates is the MPEG-4 Audio sampling_frequency_index table
// (ISO/IEC 14496-3 Table 1.16), used to recover the index mediacommon's
// AudioSpecificConfig does not expose directly.
var aacSampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// AACConfig is the parsed result of an AAC AudioSpecificConfig, per spec §6.
type AACConfig struct {
	Codec                  string
	SampleRate             int
	ChannelCount           int
	ObjectType             int
	SamplingFrequencyIndex int
	Config                 []byte
}

// ParseAudioSpecificConfig parses a raw MPEG-4 AudioSpecificConfig
// (the payload following AACPacketType==0 in an FLV audio tag). Outer
// framing is trivial here — the real bit-level work (object type,
// sampling-frequency-index, channel-configuration, and any SBR/PS
// extension) is delegated to mediacommon's mpeg4audio.AudioSpecificConfig.
func ParseAudioSpecificConfig(data []byte) (*AACConfig, error) {
	var asc mpeg4audio.AudioSpecificConfig
	if err := asc.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("codecconf: parse AudioSpecificConfig: %w", err)
	}

	cfg := &AACConfig{
		Codec:        "aac",
		SampleRate:   asc.SampleRate,
		ChannelCount: asc.ChannelCount,
		ObjectType:   int(asc.Type),
		Config:       append([]byte(nil), data...),
	}
	cfg.SamplingFrequencyIndex = sampleRateIndex(asc.SampleRate)
	return cfg, nil
}

func sampleRateIndex(rate int) int {
	for i, r := range aacSampleRates {
		if r == rate {
			return i
		}
	}
	return 0x0F // "explicit sampling frequency" escape value
}

package flv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCodecs is a minimal flv.Codecs fake, letting video/audio dispatch
// logic be exercised without real bitstream parsers, per spec §9.
type fakeCodecs struct {
	avcc        func(data []byte, lengthSize int) ([][]byte, error)
	removeEPB   func(data []byte) []byte
	parseSEI    func(data []byte, isHEVC bool) ([]SeiMessage, error)
	avcRecord   *VideoConfigResult
	hevcRecord  *VideoConfigResult
	avcRecordErr error
	aac         *AACConfigResult
	aacErr      error
}

func (f *fakeCodecs) ParseAudioSpecificConfig(data []byte) (*AACConfigResult, error) {
	return f.aac, f.aacErr
}

func (f *fakeCodecs) ParseAVCDecoderConfigurationRecord(data []byte) (*VideoConfigResult, error) {
	return f.avcRecord, f.avcRecordErr
}

func (f *fakeCodecs) ParseHEVCDecoderConfigurationRecord(data []byte) (*VideoConfigResult, error) {
	return f.hevcRecord, f.avcRecordErr
}

func (f *fakeCodecs) ParseAvcC(data []byte, lengthSize int) ([][]byte, error) {
	if f.avcc != nil {
		return f.avcc(data, lengthSize)
	}
	return defaultCodecs{}.ParseAvcC(data, lengthSize)
}

func (f *fakeCodecs) RemoveEPB(data []byte) []byte {
	if f.removeEPB != nil {
		return f.removeEPB(data)
	}
	return data
}

func (f *fakeCodecs) ParseSEI(data []byte, isHEVC bool) ([]SeiMessage, error) {
	if f.parseSEI != nil {
		return f.parseSEI(data, isHEVC)
	}
	return nil, nil
}

func TestParseVideoSequenceHeaderUpdatesTrackFields(t *testing.T) {
	fake := &fakeCodecs{
		avcRecord: &VideoConfigResult{
			SPS:         [][]byte{{0x67}},
			PPS:         [][]byte{{0x68}},
			NALUnitSize: 4,
			ParsedSPS:   SPSInfo{Codec: "avc1", Width: 1920, Height: 1080, SarRatio: "1:1", FpsNum: 30000, FpsDen: 1000},
		},
	}
	d := NewDemuxer(DemuxerOptions{Codecs: fake})
	d.parseVideoSequenceHeader(nil, VideoCodecAVC)

	assert.Equal(t, VideoCodecAVC, d.Video.Codec)
	assert.Equal(t, "avc1", d.Video.CodecStr)
	assert.Equal(t, 1920, d.Video.Width)
	assert.Equal(t, 1080, d.Video.Height)
	assert.Equal(t, 4, d.Video.NALUnitSize)
	assert.Len(t, d.Video.SPS, 1)
	assert.Len(t, d.Video.PPS, 1)
}

func TestParseVideoSequenceHeaderPreservesHVCCOnceSet(t *testing.T) {
	fake := &fakeCodecs{hevcRecord: &VideoConfigResult{HVCC: []byte{0x01, 0x02}}}
	d := NewDemuxer(DemuxerOptions{Codecs: fake})
	d.parseVideoSequenceHeader(nil, VideoCodecHEVC)
	assert.Equal(t, []byte{0x01, 0x02}, d.Video.HVCC)

	fake.hevcRecord = &VideoConfigResult{HVCC: []byte{0x03, 0x04}}
	d.parseVideoSequenceHeader(nil, VideoCodecHEVC)
	assert.Equal(t, []byte{0x01, 0x02}, d.Video.HVCC, "HVCC must not be overwritten once set")
}

func TestParseVideoSequenceHeaderMalformedWarns(t *testing.T) {
	fake := &fakeCodecs{avcRecordErr: errors.New("boom")}
	d := NewDemuxer(DemuxerOptions{Codecs: fake})
	d.parseVideoSequenceHeader(nil, VideoCodecAVC)
	assert.NotEmpty(t, d.Video.Warnings)
}

func TestParseVideoUnsupportedCodecResetsTrack(t *testing.T) {
	d := NewDemuxer(DemuxerOptions{})
	d.Video.Present = true
	d.Video.Width = 1280
	body := []byte{0x19, 0x00, 0, 0, 0, 0} // codecID 9: not AVC/HEVC
	d.parseVideo(body, 0)
	assert.Equal(t, 0, d.Video.Width)
	assert.True(t, d.Video.Present, "present flag must survive the config reset")
}

func TestParseVideoTruncatedBodyWarns(t *testing.T) {
	d := NewDemuxer(DemuxerOptions{})
	d.parseVideo([]byte{0x17, 0x00}, 0)
	assert.NotEmpty(t, d.Video.Warnings)
}

func TestApplyHEVCLatchInsertsParameterSets(t *testing.T) {
	d := NewDemuxer(DemuxerOptions{})
	d.Video.VPS = [][]byte{{0x40, 0x01}}
	d.Video.SPS = [][]byte{{0x42, 0x01}}
	d.Video.PPS = [][]byte{{0x44, 0x01}}
	require.True(t, d.needAddMetaBeforeKeyFrameNal)

	units := [][]byte{{0x26, 0x01}} // NAL type 19 (IDR_W_RADL), no in-band VPS
	out := d.applyHEVCLatch(units, VideoCodecHEVC)

	require.Len(t, out, 4)
	assert.Equal(t, d.Video.VPS[0], out[0])
	assert.Equal(t, d.Video.SPS[0], out[1])
	assert.Equal(t, d.Video.PPS[0], out[2])
	assert.Equal(t, units[0], out[3])
	assert.False(t, d.needAddMetaBeforeKeyFrameNal)
}

func TestApplyHEVCLatchSkipsWhenInBandVPSPresent(t *testing.T) {
	d := NewDemuxer(DemuxerOptions{})
	d.Video.VPS = [][]byte{{0x40, 0x01}}

	vpsNAL := []byte{byte(hevcNALUTypeVPS) << 1, 0x01}
	units := [][]byte{vpsNAL}
	out := d.applyHEVCLatch(units, VideoCodecHEVC)

	assert.Equal(t, units, out)
	assert.False(t, d.needAddMetaBeforeKeyFrameNal)
}

func TestApplyHEVCLatchClearsUnconditionallyForAVC(t *testing.T) {
	d := NewDemuxer(DemuxerOptions{})
	units := [][]byte{{0x65, 0x01}}
	out := d.applyHEVCLatch(units, VideoCodecAVC)
	assert.Equal(t, units, out)
	assert.False(t, d.needAddMetaBeforeKeyFrameNal)
}

func TestParseVideoNALUDetectsSEI(t *testing.T) {
	fake := &fakeCodecs{
		avcc: func(data []byte, lengthSize int) ([][]byte, error) {
			return [][]byte{{0x06, 0xAA, 0xBB}}, nil // NAL type 6 = SEI
		},
	}
	d := NewDemuxer(DemuxerOptions{Codecs: fake})
	d.Video.NALUnitSize = 4
	d.parseVideoNALU([]byte{0, 0, 0, 3, 0x06, 0xAA, 0xBB}, 0, 0, false, VideoCodecAVC)

	require.Len(t, d.Metadata.SeiSamples, 1)
}

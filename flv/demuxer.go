// Package flv implements the streaming, resumable FLV container demuxer
// core: FLV tag framing, AVC/HEVC/AAC sequence-header parsing, GOP
// numbering, and the HEVC parameter-set pre-insertion latch. Downstream
// timestamp normalization and AMF value interpretation are left to
// collaborators (see fixer and internal/amf).
package flv

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/flvdemux/internal/observability"
)

const (
	tagTypeAudio  = 8
	tagTypeVideo  = 9
	tagTypeScript = 18

	tagHeaderSize     = 11
	prevTagSizeBytes  = 4
	flvSignatureBytes = 4 // "FLV" + version
)

// Video codec IDs carried in the low nibble of a video tag's first byte.
const (
	videoCodecIDAVC  = 7
	videoCodecIDHEVC = 12
)

// Video packet types carried in a video tag's second byte.
const (
	videoPacketTypeSequenceHeader = 0
	videoPacketTypeNALU           = 1
	videoPacketTypeEndOfSequence  = 2
)

// Audio formats carried in the high nibble of an audio tag's first byte.
const (
	audioFormatG711ALaw  = 7
	audioFormatG711MuLaw = 8
	audioFormatAAC       = 10
)

// AAC packet types carried in an audio tag's second byte.
const (
	aacPacketTypeSequenceHeader = 0
	aacPacketTypeRawFrame       = 1
)

// HEVC NAL unit type used to detect an in-band VPS.
const hevcNALUTypeVPS = 32

// AVC/HEVC keyframe and SEI NAL unit types, per spec §4.4.
const (
	avcNALUTypeIDR = 5
	avcNALUTypeSEI = 6
)

var hevcKeyframeNALUTypes = map[int]bool{
	16: true, 17: true, 18: true, 19: true,
	20: true, 21: true, 22: true, 23: true,
}

var hevcSEINALUTypes = map[int]bool{39: true, 40: true}

// DemuxerOptions configures a Demuxer. All fields are optional.
type DemuxerOptions struct {
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Codecs overrides the AVC/HEVC/AAC/NAL capability collaborators.
	// Defaults to this repository's own internal/codecconf + internal/nalutil
	// (which in turn delegate SPS width/height/frame-rate parsing to
	// mediacommon).
	Codecs Codecs

	// AMF overrides the AMF0/AMF3 script-value collaborator. Defaults to
	// this repository's own internal/amf.
	AMF AMFParser
}

// Demuxer is a single-threaded, stateful FLV demultiplexer. It is not
// re-entrant: concurrent calls to Demux on the same instance are a
// programming error, per spec §5.
type Demuxer struct {
	logger *slog.Logger
	codecs Codecs
	amf    AMFParser

	headerParsed                 bool
	remainingData                []byte
	gopID                        uint32
	needAddMetaBeforeKeyFrameNal bool

	Video    VideoTrack
	Audio    AudioTrack
	Metadata MetadataTrack
}

// NewDemuxer creates a Demuxer ready to consume an FLV byte stream from
// its start.
func NewDemuxer(opts DemuxerOptions) *Demuxer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "flv")

	codecs := opts.Codecs
	if codecs == nil {
		codecs = defaultCodecs{}
	}
	amfParser := opts.AMF
	if amfParser == nil {
		amfParser = defaultAMFParser{}
	}

	return &Demuxer{
		logger:                       logger,
		codecs:                       codecs,
		amf:                          amfParser,
		needAddMetaBeforeKeyFrameNal: true,
	}
}

// Probe reports whether data begins with a well-formed 9-byte FLV header:
// signature "FLV", version 1, and a header-length field of at least 9.
// Pure; no state (spec §4.2, §8 invariant 3).
func Probe(data []byte) bool {
	if len(data) < 9 {
		return false
	}
	if data[0] != 'F' || data[1] != 'L' || data[2] != 'V' || data[3] != 0x01 {
		return false
	}
	return readBig32(data, 5) >= 9
}

// headerPrefixValid reports whether the bytes available so far (which may
// be fewer than a full 9-byte header) are still consistent with a
// well-formed FLV signature, so that a too-short-to-probe chunk can be
// told apart from a genuinely malformed stream.
func headerPrefixValid(data []byte) bool {
	signature := [4]byte{'F', 'L', 'V', 0x01}
	n := len(data)
	if n > 4 {
		n = 4
	}
	for i := 0; i < n; i++ {
		if data[i] != signature[i] {
			return false
		}
	}
	return true
}

// Demux parses as many complete tags as are available in data (prefixed by
// any buffered remainder), appending samples to the three tracks. It
// returns ErrInvalidContainer only when the very first header probe fails;
// all other anomalies are recorded as warnings on the affected track.
//
// discontinuity and contiguous follow spec §4.1's preprocessing rules:
// discontinuity resets all cross-call state; !contiguous (with
// !discontinuity) merely drops any buffered remainder without resetting
// track configuration.
func (d *Demuxer) Demux(data []byte, discontinuity, contiguous bool) error {
	if discontinuity || !contiguous {
		d.remainingData = nil
	}
	if discontinuity {
		d.headerParsed = false
		d.resetAllTracks()
	} else {
		d.Video.clearSamples()
		d.Audio.clearSamples()
		d.Metadata.clearSamples()
		d.Video.Warnings = nil
		d.Audio.Warnings = nil

		if len(d.remainingData) > 0 {
			merged := make([]byte, 0, len(d.remainingData)+len(data))
			merged = append(merged, d.remainingData...)
			merged = append(merged, data...)
			data = merged
			d.remainingData = nil
		}
	}

	if len(data) == 0 {
		return nil
	}

	cursor := 0

	if !d.headerParsed {
		if len(data) < 9 {
			if !headerPrefixValid(data) {
				return fmt.Errorf("%w: bad FLV signature or header length", ErrInvalidContainer)
			}
			// Not enough bytes yet to probe the full 9-byte header; wait
			// for more to arrive on a later, contiguous call.
			d.remainingData = append([]byte(nil), data...)
			return nil
		}
		if !Probe(data) {
			return fmt.Errorf("%w: bad FLV signature or header length", ErrInvalidContainer)
		}
		need := int(readBig32(data, 5)) + prevTagSizeBytes
		if len(data) < need {
			// The 9-byte header is in hand but the header-length padding
			// and/or "previous tag size 0" field hasn't fully arrived.
			d.remainingData = append([]byte(nil), data...)
			return nil
		}
		flags := data[4]
		d.Audio.Present = flags&0x04 != 0
		d.Video.Present = flags&0x01 != 0
		d.headerParsed = true
		cursor = need
	}

	for cursor+tagHeaderSize+prevTagSizeBytes <= len(data) {
		tagType := data[cursor]
		dataSize := readBig24(data, cursor+1)

		if cursor+tagHeaderSize+dataSize+prevTagSizeBytes > len(data) {
			break // incomplete tag; leave it for the remainder buffer
		}

		timestamp := int64(uint32(data[cursor+7])<<24 | uint32(data[cursor+4])<<16 |
			uint32(data[cursor+5])<<8 | uint32(data[cursor+6]))

		body := data[cursor+tagHeaderSize : cursor+tagHeaderSize+dataSize]

		switch tagType {
		case tagTypeAudio:
			d.parseAudio(body, timestamp)
		case tagTypeVideo:
			d.parseVideo(body, timestamp)
		case tagTypeScript:
			d.parseScript(body, timestamp)
		default:
			d.logger.Warn("unknown FLV tag type", slog.Int("tagType", int(tagType)))
		}

		prevTagSizeOffset := cursor + tagHeaderSize + dataSize
		prevTagSize := int(readBig32(data, prevTagSizeOffset))
		if prevTagSize != tagHeaderSize+dataSize {
			d.logger.Warn("prevTagSize mismatch",
				slog.Int("expected", tagHeaderSize+dataSize),
				slog.Int("got", prevTagSize))
		}

		cursor = prevTagSizeOffset + prevTagSizeBytes
	}

	if cursor < len(data) {
		d.remainingData = append([]byte(nil), data[cursor:]...)
	}

	d.Video.Timescale = 1000
	d.Video.FormatTimescale = 1000
	d.Metadata.Timescale = 1000
	d.Metadata.FormatTimescale = 1000
	if d.Audio.SampleRate > 0 {
		d.Audio.Timescale = d.Audio.SampleRate
	} else {
		d.Audio.Timescale = 0
	}

	// Self-healing: the container header lied about what it carries.
	if len(d.Video.Samples) > 0 && !d.Video.Present {
		d.resetVideoTrack()
	}
	if len(d.Audio.Samples) > 0 && !d.Audio.Present {
		d.resetAudioTrack()
	}

	return nil
}

func (d *Demuxer) resetAllTracks() {
	d.resetVideoTrack()
	d.resetAudioTrack()
	d.Metadata = MetadataTrack{}
	d.gopID = 0
	d.needAddMetaBeforeKeyFrameNal = true
}

func (d *Demuxer) resetVideoTrack() {
	present := d.Video.Present
	d.Video = VideoTrack{}
	d.Video.Present = present
}

func (d *Demuxer) resetAudioTrack() {
	present := d.Audio.Present
	d.Audio = AudioTrack{}
	d.Audio.Present = present
}

// readBig32 reads a big-endian uint32 at offset off. It returns 0 when
// fewer than four bytes remain at off, rather than reading a partial value
// (spec §9's note on readBig32's permissive fourth byte; Go slices make the
// equivalent safe only when bounds are checked first).
func readBig32(data []byte, off int) uint32 {
	if off+4 > len(data) {
		return 0
	}
	return binary.BigEndian.Uint32(data[off : off+4])
}

// readBig24 reads a big-endian 24-bit unsigned integer at offset off.
func readBig24(data []byte, off int) int {
	if off+3 > len(data) {
		return 0
	}
	return int(data[off])<<16 | int(data[off+1])<<8 | int(data[off+2])
}

package flv

import "errors"

// Error taxonomy, per spec §7. Only ErrInvalidContainer is ever returned
// from Demux; the rest are recorded as warnings on the affected track and
// logged, then parsing continues with the next tag.
var (
	// ErrInvalidContainer signals a bad FLV signature or header-length
	// field on the very first header probe. Fatal: Demux returns it.
	ErrInvalidContainer = errors.New("flv: invalid container")

	// ErrUnsupportedCodec signals an unrecognized audio format or video
	// codec ID. Recoverable: the affected track is reset.
	ErrUnsupportedCodec = errors.New("flv: unsupported codec")

	// ErrMalformedFraming signals a prev-tag-size mismatch, unknown tag
	// type, or truncated configuration record. Recoverable.
	ErrMalformedFraming = errors.New("flv: malformed framing")

	// ErrMalformedPayload signals an unparseable AudioSpecificConfig,
	// AVC/HEVC configuration record, or an empty NAL unit list.
	// Recoverable: no sample is appended.
	ErrMalformedPayload = errors.New("flv: malformed payload")
)

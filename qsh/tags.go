package qsh

// Tag identifies one metadata entry in a TLV stream.
type Tag uint16

// Well-known tags. Tag numbers are globally unique across the global and
// blob streams; the interpreted type of each tag is fixed by tagKinds and is
// not carried on the wire.
const (
	// TagEnd terminates a TLV stream (zero tag, zero length)
	TagEnd Tag = 0x0000

	// TagGenerator names the program that wrote the file
	TagGenerator Tag = 0x0001

	// TagCreatedAt is the creation time, seconds since the Unix epoch (u64)
	TagCreatedAt Tag = 0x0002

	// TagRadioModel names the radio model the file was captured from
	TagRadioModel Tag = 0x0003

	// TagFirmwareVersion is the firmware version string of the source radio
	TagFirmwareVersion Tag = 0x0004

	// TagComment is a free-form user comment
	TagComment Tag = 0x0005

	// TagBlobKind classifies a blob's contents (u16): channels, settings,
	// calibration, firmware
	TagBlobKind Tag = 0x0010

	// TagBlobName is a human-readable blob label
	TagBlobName Tag = 0x0011

	// TagBlobOffset is the source memory offset of the blob (u32)
	TagBlobOffset Tag = 0x0012

	// TagBlobCompression is reserved for a future compression scheme (u16).
	// No compression is defined; writers must omit it or write zero.
	TagBlobCompression Tag = 0x0013

	// TagBlobComplete marks a blob as a full (not partial) capture (bool)
	TagBlobComplete Tag = 0x0014
)

// Blob kind values for TagBlobKind.
const (
	// BlobKindChannels holds encoded channel memory
	BlobKindChannels uint16 = 0x0001

	// BlobKindSettings holds encoded radio settings
	BlobKindSettings uint16 = 0x0002

	// BlobKindCalibration holds a raw 512-byte calibration block
	BlobKindCalibration uint16 = 0x0003

	// BlobKindFirmware holds a raw firmware image
	BlobKindFirmware uint16 = 0x0004
)

// Kind is the statically known interpreted type of a tag's value.
type Kind int

const (
	// KindDefault values are attempted as UTF-8 text and preserved as raw
	// bytes when the text decoding is not clean
	KindDefault Kind = iota

	// KindUint16 is an unsigned 16-bit integer, little-endian
	KindUint16

	// KindUint32 is an unsigned 32-bit integer, little-endian
	KindUint32

	// KindUint64 is an unsigned 64-bit integer, little-endian
	KindUint64

	// KindBool is a boolean encoded as one byte (zero false, non-zero true)
	KindBool
)

// tagKinds maps each known tag to its interpreted type. Tags absent from
// this table decode with KindDefault.
var tagKinds = map[Tag]Kind{
	TagCreatedAt:       KindUint64,
	TagBlobKind:        KindUint16,
	TagBlobOffset:      KindUint32,
	TagBlobCompression: KindUint16,
	TagBlobComplete:    KindBool,
}

// KindOf returns the interpreted type for a tag.
func KindOf(tag Tag) Kind {
	if k, ok := tagKinds[tag]; ok {
		return k
	}
	return KindDefault
}

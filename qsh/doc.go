// Package qsh implements the QSH binary container format for radio data.
//
// # File Format
//
// A QSH file is a TLV-based container with whole-file integrity:
//
//	MAGIC(8) = E6 51 53 48 0D 0A 1A 0A ("\xE6QSH\r\n\x1A\n")
//	REV(2)   = format revision, little-endian
//	GlobalTLV* = container-wide metadata, zero-tag terminated
//	Blob*      = LENGTH(4) BlobTLV* BlobData
//	SHA256(32) = digest over every preceding byte
//
// A TLV stream is a sequence of TAG(2) LEN(2) VALUE(LEN) entries terminated
// by a zero-tag, zero-length entry. Tags carry no type byte: each tag
// number's interpreted type (u16/u32/u64/bool/default) is fixed by this
// package. Untyped values are decoded as UTF-8 text when clean, raw bytes
// otherwise — a heuristic, not a guarantee.
//
// # Building
//
//	f := qsh.New()
//	f.Meta[qsh.TagRadioModel] = "UVK5"
//	f.Meta[qsh.TagCreatedAt] = uint64(time.Now().Unix())
//	f.AppendBlob(qsh.Metadata{
//	    qsh.TagBlobKind:   qsh.BlobKindCalibration,
//	    qsh.TagBlobOffset: uint32(0xB000),
//	}, calData)
//	out, err := f.Serialize()
//
// # Parsing
//
//	f, err := qsh.Parse(data)
//
// Parse verifies the magic signature and the trailing SHA-256 before
// interpreting anything; tampered files yield an InvalidContainerError and
// no partial result. A damaged blob length prefix stops the blob walk but
// keeps blobs already parsed.
package qsh

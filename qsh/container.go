package qsh

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Container layout constants.
const (
	// MagicSize is the length of the file signature
	MagicSize = 8

	// FormatRev is the container format revision written by this package
	FormatRev uint16 = 0x0001

	// HashSize is the length of the trailing SHA-256 digest
	HashSize = sha256.Size

	// minFileSize is the smallest valid container:
	// MAGIC(8) + REV(2) + empty global TLV terminator(4) + SHA256(32)
	minFileSize = MagicSize + 2 + 4 + HashSize
)

// Magic is the fixed 8-byte file signature. The leading non-ASCII byte and
// embedded CR/LF/SUB bytes catch files mangled by text-mode transfers.
var Magic = [MagicSize]byte{0xE6, 'Q', 'S', 'H', '\r', '\n', 0x1A, '\n'}

// InvalidContainerError indicates that data failed container validation
// before any structure was interpreted: bad magic, bad hash, or a malformed
// global section. No partially-parsed result accompanies it.
type InvalidContainerError struct {
	// Reason describes what failed
	Reason string
}

func (e *InvalidContainerError) Error() string {
	return fmt.Sprintf("invalid QSH container: %s", e.Reason)
}

// Blob is one metadata-tagged byte blob inside a container.
type Blob struct {
	// Meta is the blob's TLV metadata
	Meta Metadata

	// Data is the blob's raw contents, opaque to this package
	Data []byte
}

// File is a QSH container: global metadata plus an ordered list of blobs.
//
// A File is either built incrementally (set global metadata, append blobs,
// serialize once) or produced fully populated by Parse. After Serialize the
// file is sealed and further appends fail.
type File struct {
	// Meta is the container-wide TLV metadata
	Meta Metadata

	// Blobs are the contained blobs, in file order
	Blobs []Blob

	sealed bool
}

// New creates an empty container ready for incremental building.
func New() *File {
	return &File{Meta: make(Metadata)}
}

// AppendBlob adds a blob to the container. It fails once the file has been
// serialized.
func (f *File) AppendBlob(meta Metadata, data []byte) error {
	if f.sealed {
		return fmt.Errorf("container already serialized")
	}
	if meta == nil {
		meta = make(Metadata)
	}
	f.Blobs = append(f.Blobs, Blob{Meta: meta, Data: data})
	return nil
}

// Serialize encodes the container:
//
//	MAGIC(8) ++ REV(2) ++ GlobalTLV ++ (BlobLen(4) BlobTLV BlobData)* ++ SHA256(32)
//
// The trailing digest is recomputed over every byte written before it. After
// a successful Serialize the file is sealed.
func (f *File) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(Magic[:])

	var rev [2]byte
	binary.LittleEndian.PutUint16(rev[:], FormatRev)
	buf.Write(rev[:])

	if err := writeTLVStream(&buf, f.Meta); err != nil {
		return nil, fmt.Errorf("global metadata: %w", err)
	}

	for i, blob := range f.Blobs {
		var body bytes.Buffer
		if err := writeTLVStream(&body, blob.Meta); err != nil {
			return nil, fmt.Errorf("blob %d metadata: %w", i, err)
		}
		body.Write(blob.Data)

		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(body.Len()))
		buf.Write(length[:])
		buf.Write(body.Bytes())
	}

	digest := sha256.Sum256(buf.Bytes())
	buf.Write(digest[:])

	f.sealed = true
	return buf.Bytes(), nil
}

// Parse decodes a QSH container.
//
// Before interpreting any structure it verifies the magic signature and the
// trailing SHA-256 over all preceding bytes; on either mismatch it returns
// an InvalidContainerError and no result. A truncated or inconsistent blob
// length prefix stops parsing of remaining blobs without discarding blobs
// already parsed.
func Parse(data []byte) (*File, error) {
	if len(data) < minFileSize {
		return nil, &InvalidContainerError{Reason: fmt.Sprintf("too short: %d bytes, minimum is %d", len(data), minFileSize)}
	}

	if !bytes.Equal(data[:MagicSize], Magic[:]) {
		return nil, &InvalidContainerError{Reason: "bad magic signature"}
	}

	body := data[:len(data)-HashSize]
	want := data[len(data)-HashSize:]
	digest := sha256.Sum256(body)
	if !bytes.Equal(digest[:], want) {
		return nil, &InvalidContainerError{Reason: "SHA-256 mismatch"}
	}

	offset := MagicSize + 2 // revision is recorded but all revisions parse alike

	meta, offset, err := readTLVStream(body, offset)
	if err != nil {
		return nil, &InvalidContainerError{Reason: err.Error()}
	}

	f := &File{Meta: meta, sealed: true}

	for offset < len(body) {
		if offset+4 > len(body) {
			break // trailing junk, keep blobs parsed so far
		}
		length := int(binary.LittleEndian.Uint32(body[offset : offset+4]))
		offset += 4
		if length < 4 || offset+length > len(body) {
			break // inconsistent length prefix, keep blobs parsed so far
		}

		blobBody := body[offset : offset+length]
		blobMeta, dataStart, err := readTLVStream(blobBody, 0)
		if err != nil {
			break
		}

		blobData := make([]byte, len(blobBody)-dataStart)
		copy(blobData, blobBody[dataStart:])
		f.Blobs = append(f.Blobs, Blob{Meta: blobMeta, Data: blobData})
		offset += length
	}

	return f, nil
}

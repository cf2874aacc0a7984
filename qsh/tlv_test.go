package qsh

import (
	"bytes"
	"reflect"
	"testing"
)

func TestTLVStreamRoundTrip(t *testing.T) {
	meta := Metadata{
		TagGenerator:       "test",
		TagCreatedAt:       uint64(0x0123456789ABCDEF),
		TagBlobKind:        BlobKindSettings,
		TagBlobOffset:      uint32(0x1E00),
		TagBlobCompression: uint16(0),
		TagBlobComplete:    false,
	}

	var buf bytes.Buffer
	if err := writeTLVStream(&buf, meta); err != nil {
		t.Fatalf("writeTLVStream: %v", err)
	}

	got, end, err := readTLVStream(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("readTLVStream: %v", err)
	}
	if end != buf.Len() {
		t.Errorf("end offset = %d, want %d", end, buf.Len())
	}
	if !reflect.DeepEqual(got, meta) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got, meta)
	}
}

func TestTLVBinaryValueStaysBytes(t *testing.T) {
	// 0xFF 0xFE is not valid UTF-8, so an untyped value must come back as
	// raw bytes rather than a mangled string.
	raw := []byte{0xFF, 0xFE, 0x00, 0x01}
	meta := Metadata{TagComment: raw}

	var buf bytes.Buffer
	if err := writeTLVStream(&buf, meta); err != nil {
		t.Fatalf("writeTLVStream: %v", err)
	}

	got, _, err := readTLVStream(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("readTLVStream: %v", err)
	}

	b, ok := got.Bytes(TagComment)
	if !ok {
		t.Fatalf("value decoded as %T, want []byte", got[TagComment])
	}
	if !bytes.Equal(b, raw) {
		t.Errorf("value = % X, want % X", b, raw)
	}
}

func TestTLVTypedValueWrongType(t *testing.T) {
	var buf bytes.Buffer
	err := writeTLVStream(&buf, Metadata{TagCreatedAt: "not a number"})
	if err == nil {
		t.Error("string value for a u64 tag encoded without error")
	}
}

func TestTLVTypedValueWrongLength(t *testing.T) {
	// TagBlobKind is a u16; a 3-byte value is malformed.
	data := []byte{
		0x10, 0x00, 0x03, 0x00, 0xAA, 0xBB, 0xCC,
		0x00, 0x00, 0x00, 0x00,
	}
	if _, _, err := readTLVStream(data, 0); err == nil {
		t.Error("malformed typed value parsed without error")
	}
}

func TestTLVTruncatedStream(t *testing.T) {
	cases := [][]byte{
		{},                            // no terminator at all
		{0x01, 0x00},                  // header cut short
		{0x01, 0x00, 0x08, 0x00, 'a'}, // value cut short
		{0x00, 0x00, 0x05, 0x00, 'x'}, // terminator with non-zero length
	}
	for i, data := range cases {
		if _, _, err := readTLVStream(data, 0); err == nil {
			t.Errorf("case %d: truncated stream parsed without error", i)
		}
	}
}

func TestTLVDeterministicOrder(t *testing.T) {
	meta := Metadata{
		TagComment:    "c",
		TagGenerator:  "g",
		TagRadioModel: "m",
	}

	var a, b bytes.Buffer
	if err := writeTLVStream(&a, meta); err != nil {
		t.Fatalf("writeTLVStream: %v", err)
	}
	if err := writeTLVStream(&b, meta); err != nil {
		t.Fatalf("writeTLVStream: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("identical metadata serialized to different bytes")
	}
}

func TestMetadataAccessors(t *testing.T) {
	meta := Metadata{
		TagBlobKind:     BlobKindFirmware,
		TagBlobOffset:   uint32(0x4000),
		TagCreatedAt:    uint64(42),
		TagBlobComplete: true,
		TagGenerator:    "gen",
		TagComment:      []byte{0x00, 0xFF},
	}

	if v, ok := meta.Uint16(TagBlobKind); !ok || v != BlobKindFirmware {
		t.Errorf("Uint16 = %v, %v", v, ok)
	}
	if v, ok := meta.Uint32(TagBlobOffset); !ok || v != 0x4000 {
		t.Errorf("Uint32 = %v, %v", v, ok)
	}
	if v, ok := meta.Uint64(TagCreatedAt); !ok || v != 42 {
		t.Errorf("Uint64 = %v, %v", v, ok)
	}
	if v, ok := meta.Bool(TagBlobComplete); !ok || !v {
		t.Errorf("Bool = %v, %v", v, ok)
	}
	if v, ok := meta.String(TagGenerator); !ok || v != "gen" {
		t.Errorf("String = %q, %v", v, ok)
	}
	if _, ok := meta.Bytes(TagGenerator); ok {
		t.Error("Bytes succeeded on a string value")
	}
	if _, ok := meta.Uint16(TagBlobOffset); ok {
		t.Error("Uint16 succeeded on a uint32 value")
	}
}

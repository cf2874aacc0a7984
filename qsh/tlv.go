package qsh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf8"
)

// Metadata is a tag → value map for one TLV stream.
//
// Value types follow each tag's statically known kind: uint16, uint32,
// uint64, bool, string, or []byte. Untyped (KindDefault) values read back as
// string when the bytes decode cleanly as UTF-8, otherwise as []byte. The
// text heuristic can misclassify binary data that happens to be valid UTF-8;
// callers needing a guarantee should use a typed tag.
type Metadata map[Tag]interface{}

// Uint16 returns the value of a KindUint16 tag.
func (m Metadata) Uint16(tag Tag) (uint16, bool) {
	v, ok := m[tag].(uint16)
	return v, ok
}

// Uint32 returns the value of a KindUint32 tag.
func (m Metadata) Uint32(tag Tag) (uint32, bool) {
	v, ok := m[tag].(uint32)
	return v, ok
}

// Uint64 returns the value of a KindUint64 tag.
func (m Metadata) Uint64(tag Tag) (uint64, bool) {
	v, ok := m[tag].(uint64)
	return v, ok
}

// Bool returns the value of a KindBool tag.
func (m Metadata) Bool(tag Tag) (bool, bool) {
	v, ok := m[tag].(bool)
	return v, ok
}

// String returns the value of a textual KindDefault tag.
func (m Metadata) String(tag Tag) (string, bool) {
	v, ok := m[tag].(string)
	return v, ok
}

// Bytes returns the value of a raw-bytes KindDefault tag.
func (m Metadata) Bytes(tag Tag) ([]byte, bool) {
	v, ok := m[tag].([]byte)
	return v, ok
}

// encodeValue serializes one metadata value according to its tag's kind.
func encodeValue(tag Tag, value interface{}) ([]byte, error) {
	switch KindOf(tag) {
	case KindUint16:
		v, ok := value.(uint16)
		if !ok {
			return nil, fmt.Errorf("tag 0x%04X: expected uint16, got %T", uint16(tag), value)
		}
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, v)
		return out, nil

	case KindUint32:
		v, ok := value.(uint32)
		if !ok {
			return nil, fmt.Errorf("tag 0x%04X: expected uint32, got %T", uint16(tag), value)
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, v)
		return out, nil

	case KindUint64:
		v, ok := value.(uint64)
		if !ok {
			return nil, fmt.Errorf("tag 0x%04X: expected uint64, got %T", uint16(tag), value)
		}
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, v)
		return out, nil

	case KindBool:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("tag 0x%04X: expected bool, got %T", uint16(tag), value)
		}
		if v {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil

	default:
		switch v := value.(type) {
		case string:
			return []byte(v), nil
		case []byte:
			return v, nil
		default:
			return nil, fmt.Errorf("tag 0x%04X: expected string or []byte, got %T", uint16(tag), value)
		}
	}
}

// decodeValue interprets one raw TLV value according to its tag's kind.
func decodeValue(tag Tag, raw []byte) (interface{}, error) {
	switch KindOf(tag) {
	case KindUint16:
		if len(raw) != 2 {
			return nil, fmt.Errorf("tag 0x%04X: expected 2 bytes, got %d", uint16(tag), len(raw))
		}
		return binary.LittleEndian.Uint16(raw), nil

	case KindUint32:
		if len(raw) != 4 {
			return nil, fmt.Errorf("tag 0x%04X: expected 4 bytes, got %d", uint16(tag), len(raw))
		}
		return binary.LittleEndian.Uint32(raw), nil

	case KindUint64:
		if len(raw) != 8 {
			return nil, fmt.Errorf("tag 0x%04X: expected 8 bytes, got %d", uint16(tag), len(raw))
		}
		return binary.LittleEndian.Uint64(raw), nil

	case KindBool:
		if len(raw) != 1 {
			return nil, fmt.Errorf("tag 0x%04X: expected 1 byte, got %d", uint16(tag), len(raw))
		}
		return raw[0] != 0, nil

	default:
		// Try text first; anything that would decode with replacement
		// characters is preserved as raw bytes instead.
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
}

// writeTLVStream serializes a metadata map as a TLV stream, terminated by a
// zero-tag zero-length entry. Tags are written in ascending order so output
// is deterministic.
func writeTLVStream(buf *bytes.Buffer, meta Metadata) error {
	tags := make([]Tag, 0, len(meta))
	for tag := range meta {
		if tag == TagEnd {
			continue
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	var entry [4]byte
	for _, tag := range tags {
		value, err := encodeValue(tag, meta[tag])
		if err != nil {
			return err
		}
		if len(value) > 0xFFFF {
			return fmt.Errorf("tag 0x%04X: value too long (%d bytes)", uint16(tag), len(value))
		}

		binary.LittleEndian.PutUint16(entry[0:2], uint16(tag))
		binary.LittleEndian.PutUint16(entry[2:4], uint16(len(value)))
		buf.Write(entry[:])
		buf.Write(value)
	}

	// Stream terminator.
	binary.LittleEndian.PutUint16(entry[0:2], uint16(TagEnd))
	binary.LittleEndian.PutUint16(entry[2:4], 0)
	buf.Write(entry[:])
	return nil
}

// readTLVStream parses a TLV stream from data starting at offset, returning
// the metadata and the offset just past the stream terminator.
func readTLVStream(data []byte, offset int) (Metadata, int, error) {
	meta := make(Metadata)

	for {
		if offset+4 > len(data) {
			return nil, 0, fmt.Errorf("TLV stream truncated at offset %d", offset)
		}

		tag := Tag(binary.LittleEndian.Uint16(data[offset : offset+2]))
		length := int(binary.LittleEndian.Uint16(data[offset+2 : offset+4]))
		offset += 4

		if tag == TagEnd {
			if length != 0 {
				return nil, 0, fmt.Errorf("TLV terminator with non-zero length %d", length)
			}
			return meta, offset, nil
		}

		if offset+length > len(data) {
			return nil, 0, fmt.Errorf("TLV value for tag 0x%04X truncated: need %d bytes at offset %d", uint16(tag), length, offset)
		}

		value, err := decodeValue(tag, data[offset:offset+length])
		if err != nil {
			return nil, 0, err
		}
		meta[tag] = value
		offset += length
	}
}

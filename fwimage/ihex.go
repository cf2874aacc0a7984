package fwimage

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
)

// Intel HEX record types handled by this parser.
const (
	// recordData carries image bytes at a 16-bit offset
	recordData = 0x00

	// recordEOF terminates the file
	recordEOF = 0x01

	// recordExtLinearAddr sets the upper 16 bits of subsequent data offsets
	recordExtLinearAddr = 0x04
)

// minRecordLength is the shortest possible record in hex characters:
// count(2) + offset(4) + type(2) + checksum(2).
const minRecordLength = 10

// ParseHex parses an Intel HEX firmware image from any io.Reader.
//
// Data (00), EOF (01), and extended linear address (04) records are
// interpreted; other record types are ignored. Every record's checksum is
// verified. The image starts at the lowest address written; gaps between
// records are zero-filled.
func ParseHex(r io.Reader) (*Firmware, error) {
	scanner := bufio.NewScanner(r)

	chunks := make(map[uint32][]byte)
	base := uint32(0)
	sawEOF := false

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if line == "" {
			continue
		}
		if sawEOF {
			return nil, fmt.Errorf("line %d: record after EOF", lineNum)
		}

		rec, err := parseHexRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch rec.typ {
		case recordData:
			chunks[base+uint32(rec.offset)] = rec.data
		case recordEOF:
			sawEOF = true
		case recordExtLinearAddr:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended address record with %d data bytes", lineNum, len(rec.data))
			}
			base = uint32(rec.data[0])<<24 | uint32(rec.data[1])<<16
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !sawEOF {
		return nil, fmt.Errorf("missing EOF record")
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no data records found")
	}

	return assembleImage(chunks)
}

// hexRecord is one decoded Intel HEX record.
type hexRecord struct {
	offset uint16
	typ    byte
	data   []byte
}

// parseHexRecord decodes and checksum-verifies a single record line.
//
// Record format after the leading ':':
//
//	[Count(1 byte)][Offset(2 bytes)][Type(1 byte)][Data(Count bytes)][Checksum(1 byte)]
//
// All values are hex-encoded; Offset is big-endian. The checksum byte makes
// the byte sum of the whole record zero mod 256.
func parseHexRecord(line string) (*hexRecord, error) {
	if line[0] != ':' {
		return nil, fmt.Errorf("record must start with ':'")
	}
	line = line[1:]

	if len(line) < minRecordLength {
		return nil, fmt.Errorf("record too short: got %d characters, minimum is %d", len(line), minRecordLength)
	}

	data, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	count := int(data[0])
	expectedLen := 1 + 2 + 1 + count + 1
	if len(data) != expectedLen {
		return nil, fmt.Errorf("record length mismatch: got %d bytes, expected %d for count %d", len(data), expectedLen, count)
	}

	var sum byte
	for _, b := range data {
		sum += b
	}
	if sum != 0 {
		return nil, fmt.Errorf("checksum mismatch: record bytes sum to 0x%02X", sum)
	}

	rec := &hexRecord{
		offset: uint16(data[1])<<8 | uint16(data[2]),
		typ:    data[3],
		data:   make([]byte, count),
	}
	copy(rec.data, data[4:4+count])

	return rec, nil
}

// assembleImage lays the address-keyed chunks into a contiguous image
// starting at the lowest written address, zero-filling gaps.
func assembleImage(chunks map[uint32][]byte) (*Firmware, error) {
	first := true
	var lo, hi uint32
	for addr, data := range chunks {
		end := addr + uint32(len(data))
		if first {
			lo, hi = addr, end
			first = false
			continue
		}
		if addr < lo {
			lo = addr
		}
		if end > hi {
			hi = end
		}
	}

	size := hi - lo
	if size > MaxImageSize {
		return nil, fmt.Errorf("firmware image too large: %d bytes, maximum is %d", size, MaxImageSize)
	}

	image := make([]byte, size)
	for addr, data := range chunks {
		copy(image[addr-lo:], data)
	}

	return &Firmware{Data: image}, nil
}

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Obfuscate XORs data with the fixed 16-byte key, cycling by absolute
// position within data. The result is returned as a new slice; the input is
// not modified. Applying Obfuscate twice restores the original bytes.
func Obfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ obfuscationKey[i%len(obfuscationKey)]
	}
	return out
}

// EncodeFrame builds a complete wire frame for a message.
//
// Frame structure (all integers little-endian):
//
//	[SYNC(2)][INNERLEN(2)][OBFUSCATED: MSGTYPE(2) LEN(2) PAYLOAD(padded) CRC16(2)][FOOTER(2)]
//
// The inner LEN field is 4 plus the unpadded payload length, so the receiver
// can recover the exact payload. The outer INNERLEN field is 4 plus the
// even-padded payload length and describes the obfuscated region minus its
// CRC. A single zero pad byte is appended when the payload length is odd.
//
// The CRC is CRC-16/XMODEM over the cleartext inner message; obfuscation is
// applied afterwards to the inner message and CRC together.
func EncodeFrame(msgType uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxInnerLen-4 {
		return nil, fmt.Errorf("payload too long: %d bytes, maximum is %d", len(payload), MaxInnerLen-4)
	}

	paddedLen := len(payload)
	if paddedLen%2 != 0 {
		paddedLen++
	}

	inner := make([]byte, 4+paddedLen)
	binary.LittleEndian.PutUint16(inner[0:2], msgType)
	binary.LittleEndian.PutUint16(inner[2:4], uint16(4+len(payload)))
	copy(inner[4:], payload)

	crc := CRC16(inner)

	body := make([]byte, len(inner)+2)
	copy(body, inner)
	binary.LittleEndian.PutUint16(body[len(inner):], crc)

	frame := make([]byte, 0, HeaderSize+len(body)+FooterSize)
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(hdr[0:2], SyncMarker)
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(inner)))
	frame = append(frame, hdr...)
	frame = append(frame, Obfuscate(body)...)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint16(footer, FooterMarker)
	frame = append(frame, footer...)

	return frame, nil
}

// Decoder extracts messages from an accumulating receive buffer.
//
// The decoder is resilient to line noise: it scans for the sync marker,
// treats structurally implausible matches (bad length, missing footer) as
// false positives and keeps scanning, and silently discards frames whose
// CRC does not verify. Bytes are consumed only when a frame is accepted or
// ruled out; a partial frame stays buffered until more bytes arrive.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty frame decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends received bytes to the decoder's buffer.
//
// If the buffer exceeds MaxBufferSize without yielding a valid frame it is
// trimmed to the trailing TrimmedBufferSize bytes, bounding memory under
// sustained noise.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
	if len(d.buf) > MaxBufferSize {
		d.buf = append(d.buf[:0], d.buf[len(d.buf)-TrimmedBufferSize:]...)
	}
}

// Buffered returns the number of unconsumed bytes held by the decoder.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards all buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Next extracts the next complete, CRC-valid message from the buffer.
// It returns ok=false when no complete frame is available yet; callers feed
// more bytes and try again. Corrupt frames are skipped internally and never
// surfaced.
func (d *Decoder) Next() (msgType uint16, payload []byte, ok bool) {
	for {
		start := d.findSync()
		if start < 0 {
			// No sync marker: keep at most one trailing byte, which may be
			// the first half of a marker split across reads.
			if len(d.buf) > 1 {
				d.buf = append(d.buf[:0], d.buf[len(d.buf)-1:]...)
			}
			return 0, nil, false
		}

		// Drop leading garbage before the sync marker.
		if start > 0 {
			d.buf = append(d.buf[:0], d.buf[start:]...)
		}

		if len(d.buf) < HeaderSize {
			return 0, nil, false
		}

		innerLen := int(binary.LittleEndian.Uint16(d.buf[2:4]))
		if innerLen < 4 || innerLen > MaxInnerLen || innerLen%2 != 0 {
			// Implausible length: the sync match was a false positive.
			d.skipSync()
			continue
		}

		frameSize := HeaderSize + innerLen + 2 + FooterSize
		if len(d.buf) < frameSize {
			// Structurally plausible but incomplete: wait for more bytes
			// without consuming anything.
			return 0, nil, false
		}

		footer := binary.LittleEndian.Uint16(d.buf[frameSize-FooterSize : frameSize])
		if footer != FooterMarker {
			d.skipSync()
			continue
		}

		body := Obfuscate(d.buf[HeaderSize : HeaderSize+innerLen+2])
		inner := body[:innerLen]
		wantCRC := binary.LittleEndian.Uint16(body[innerLen:])
		if CRC16(inner) != wantCRC {
			// Corrupt frame: resync past the marker, never surface.
			d.skipSync()
			continue
		}

		declaredLen := int(binary.LittleEndian.Uint16(inner[2:4]))
		payloadLen := declaredLen - 4
		if payloadLen < 0 || payloadLen > innerLen-4 {
			d.skipSync()
			continue
		}

		msgType = binary.LittleEndian.Uint16(inner[0:2])
		payload = make([]byte, payloadLen)
		copy(payload, inner[4:4+payloadLen])

		// Consume exactly the accepted frame.
		d.buf = append(d.buf[:0], d.buf[frameSize:]...)
		return msgType, payload, true
	}
}

// findSync returns the index of the first sync marker in the buffer, or -1.
func (d *Decoder) findSync() int {
	for i := 0; i+1 < len(d.buf); i++ {
		if binary.LittleEndian.Uint16(d.buf[i:i+2]) == SyncMarker {
			return i
		}
	}
	return -1
}

// skipSync advances the buffer past a sync marker ruled a false positive.
func (d *Decoder) skipSync() {
	d.buf = append(d.buf[:0], d.buf[2:]...)
}

// Package protocol implements the wire protocol spoken by the radio family
// over its byte-oriented serial link.
//
// # Frame Overview
//
// Every message travels in a framed, obfuscated packet:
//
//	[SYNC(2)][INNERLEN(2)][OBFUSCATED: MSGTYPE(2) LEN(2) PAYLOAD(padded) CRC16(2)][FOOTER(2)]
//
// Where:
//   - SYNC = 0xABCD, FOOTER = 0xBADC (little-endian, like all integers)
//   - CRC16 = CRC-16/XMODEM over the cleartext inner message
//   - OBFUSCATED = inner message XORed with a fixed 16-byte repeating key
//
// The XOR obfuscation is an involution, so the same routine encodes and
// decodes. The CRC always covers cleartext, never obfuscated bytes.
//
// # Encoding and Decoding
//
// Use EncodeFrame to build a frame and Decoder to extract messages from a
// noisy receive stream:
//
//	frame, err := protocol.EncodeFrame(protocol.MsgDeviceInfoReq,
//	    protocol.BuildDeviceInfoReq(timestamp))
//
//	dec := protocol.NewDecoder()
//	dec.Feed(received)
//	if msgType, payload, ok := dec.Next(); ok {
//	    // handle message
//	}
//
// The decoder recovers from garbage, false sync matches, and CRC failures by
// resynchronizing; framing errors are never surfaced to callers.
//
// # Message Builders and Parsers
//
// Build* functions produce payloads for the frame body; Parse* functions
// validate and decode response payloads:
//
//	payload := protocol.BuildDeviceInfoReq(ts)
//	version, err := protocol.ParseDeviceInfoResp(resp)
//
// # Error Handling
//
// Device-reported error codes are wrapped in DeviceError:
//
//	if ack.ErrorCode != protocol.StatusOK {
//	    err := &protocol.DeviceError{Operation: "program page", Code: ack.ErrorCode}
//	}
package protocol

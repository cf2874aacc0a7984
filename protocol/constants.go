package protocol

// Frame structure constants.
const (
	// SyncMarker is the 16-bit frame start marker, written little-endian.
	SyncMarker = 0xABCD

	// FooterMarker is the 16-bit frame end marker, written little-endian.
	FooterMarker = 0xBADC

	// HeaderSize is the size of the frame prefix: SYNC(2) + INNERLEN(2)
	HeaderSize = 4

	// FooterSize is the size of the frame suffix (2 bytes)
	FooterSize = 2

	// MinFrameSize is the smallest structurally valid frame:
	// SYNC(2) + INNERLEN(2) + MSGTYPE(2) + INNERLEN(2) + CRC(2) + FOOTER(2)
	MinFrameSize = 12

	// MaxInnerLen bounds the declared inner length of a frame.
	// Larger declarations are treated as sync false positives.
	MaxInnerLen = 1024
)

// Receive buffer bounds for the decoder's resync loop.
const (
	// MaxBufferSize is the point at which the accumulating receive buffer
	// is trimmed to bound memory under sustained line noise.
	MaxBufferSize = 4096

	// TrimmedBufferSize is the number of trailing bytes kept after a trim.
	TrimmedBufferSize = 1024
)

// obfuscationKey is the fixed 16-byte XOR key cycled over the obfuscated
// region (inner message + CRC) by absolute position. XOR with a repeating
// key is an involution, so the same table de-obfuscates.
var obfuscationKey = [16]byte{
	0x16, 0x6C, 0x14, 0xE6, 0x2E, 0x91, 0x0D, 0x40,
	0x21, 0x35, 0xD5, 0x40, 0x13, 0x03, 0xE9, 0x80,
}

// Message types carried in the frame body.
const (
	// MsgDeviceInfoReq requests device identification (carries a session timestamp)
	MsgDeviceInfoReq = 0x0514

	// MsgDeviceInfoResp is the direct identification response from normal firmware
	MsgDeviceInfoResp = 0x0515

	// MsgDeviceInfoNotify is the unsolicited beacon a bootloader-mode device
	// emits periodically while idle
	MsgDeviceInfoNotify = 0x0518

	// MsgFlashPage programs one 256-byte firmware page
	MsgFlashPage = 0x0519

	// MsgFlashPageAck acknowledges a programmed page, echoing its index
	MsgFlashPageAck = 0x051A

	// MsgEEPROMRead requests a chunk of EEPROM at a given address
	MsgEEPROMRead = 0x051B

	// MsgEEPROMReadResp returns a chunk of EEPROM, echoing the address
	MsgEEPROMReadResp = 0x051C

	// MsgEEPROMWrite writes a chunk of EEPROM at a given address
	MsgEEPROMWrite = 0x051D

	// MsgEEPROMWriteResp acknowledges an EEPROM write, echoing the address
	MsgEEPROMWriteResp = 0x051E

	// MsgTelemetryReq requests an RSSI/battery telemetry sample
	MsgTelemetryReq = 0x0527

	// MsgTelemetryResp returns an RSSI/battery telemetry sample
	MsgTelemetryResp = 0x0528

	// MsgBootVersionHandshake echoes the bootloader version prefix back to
	// the device before a flash session
	MsgBootVersionHandshake = 0x0530

	// MsgReboot reboots the device. Fire-and-forget: no response is sent.
	MsgReboot = 0x05DD
)

// Device-reported error codes carried inside otherwise-valid responses.
const (
	// StatusOK indicates the command was accepted
	StatusOK = 0x00

	// ErrCodeBusy indicates the device could not service the request yet
	ErrCodeBusy = 0x01

	// ErrCodeAddress indicates an out-of-range memory address
	ErrCodeAddress = 0x02

	// ErrCodeVerify indicates a page failed post-write verification
	ErrCodeVerify = 0x03

	// ErrCodeSession indicates a stale or mismatched session timestamp
	ErrCodeSession = 0x04
)

// Transfer geometry.
const (
	// PageSize is the fixed firmware page size on the wire. The final page
	// of an image is zero-padded to this size.
	PageSize = 256

	// EEPROMChunkSize is the fixed chunk size for EEPROM transfers
	EEPROMChunkSize = 16

	// CalibrationBlockSize is the full calibration block size.
	// Transfers always cover the whole block: 32 chunks of 16 bytes.
	CalibrationBlockSize = 512

	// CalibrationOffsetLegacy is the calibration block address on firmware
	// versions with major number below 5
	CalibrationOffsetLegacy = 0x1E00

	// CalibrationOffsetCurrent is the calibration block address on firmware
	// versions with major number 5 and above
	CalibrationOffsetCurrent = 0xB000

	// UIDSize is the device unique ID length in a bootloader beacon
	UIDSize = 16

	// VersionRegionSize is the size of the fixed version string region in
	// identification payloads. The string inside it is NUL/0xFF terminated.
	VersionRegionSize = 16

	// HandshakeEchoLen is the number of leading version characters echoed
	// back to the bootloader during the flash handshake
	HandshakeEchoLen = 4
)

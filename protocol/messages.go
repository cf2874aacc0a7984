package protocol

import (
	"encoding/binary"
	"fmt"
)

// BuildDeviceInfoReq constructs the device-info request payload.
//
// Payload layout:
//
//	[TIMESTAMP(4)]
//
// The timestamp identifies the host session; the device echoes it in
// session-scoped responses.
func BuildDeviceInfoReq(timestamp uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, timestamp)
	return payload
}

// BuildBootVersionHandshake constructs the bootloader handshake payload,
// echoing the first HandshakeEchoLen characters of the observed bootloader
// version back to the device.
//
// Payload layout:
//
//	[VERSION_PREFIX(4)][TIMESTAMP(4)]
func BuildBootVersionHandshake(version string, timestamp uint32) []byte {
	payload := make([]byte, HandshakeEchoLen+4)
	copy(payload, version)
	binary.LittleEndian.PutUint32(payload[HandshakeEchoLen:], timestamp)
	return payload
}

// BuildFlashPageCmd constructs a program-firmware-page payload.
// The data must be exactly PageSize bytes; shorter final pages are padded
// by the caller before building the command.
//
// Payload layout:
//
//	[TIMESTAMP(4)][INDEX(2)][TOTAL(2)][DATA(256)]
func BuildFlashPageCmd(timestamp uint32, index, total uint16, data []byte) ([]byte, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}
	if index >= total {
		return nil, fmt.Errorf("page index %d out of range: total is %d", index, total)
	}

	payload := make([]byte, 8+PageSize)
	binary.LittleEndian.PutUint32(payload[0:4], timestamp)
	binary.LittleEndian.PutUint16(payload[4:6], index)
	binary.LittleEndian.PutUint16(payload[6:8], total)
	copy(payload[8:], data)
	return payload, nil
}

// BuildEEPROMReadCmd constructs a read-EEPROM payload for one chunk.
//
// Payload layout:
//
//	[ADDR(2)][SIZE(1)][PAD(1)][TIMESTAMP(4)]
func BuildEEPROMReadCmd(addr uint16, size uint8, timestamp uint32) ([]byte, error) {
	if size == 0 || size > EEPROMChunkSize {
		return nil, fmt.Errorf("chunk size %d out of range: maximum is %d", size, EEPROMChunkSize)
	}

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint16(payload[0:2], addr)
	payload[2] = size
	binary.LittleEndian.PutUint32(payload[4:8], timestamp)
	return payload, nil
}

// BuildEEPROMWriteCmd constructs a write-EEPROM payload for one chunk.
//
// Payload layout:
//
//	[ADDR(2)][SIZE(1)][PAD(1)][TIMESTAMP(4)][DATA(SIZE)]
func BuildEEPROMWriteCmd(addr uint16, timestamp uint32, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > EEPROMChunkSize {
		return nil, fmt.Errorf("chunk data length %d out of range: maximum is %d", len(data), EEPROMChunkSize)
	}

	payload := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], addr)
	payload[2] = uint8(len(data))
	binary.LittleEndian.PutUint32(payload[4:8], timestamp)
	copy(payload[8:], data)
	return payload, nil
}

// BuildRebootCmd constructs the reboot payload. The device applies pending
// EEPROM changes and restarts; no response is sent.
func BuildRebootCmd() []byte {
	return nil
}

// BuildTelemetryReq constructs an RSSI/battery telemetry request payload.
//
// Payload layout:
//
//	[TIMESTAMP(4)]
func BuildTelemetryReq(timestamp uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, timestamp)
	return payload
}

// ParseVersion extracts a NUL/0xFF-terminated ASCII version string from a
// fixed version region.
func ParseVersion(region []byte) string {
	end := len(region)
	for i, b := range region {
		if b == 0x00 || b == 0xFF {
			end = i
			break
		}
	}
	return string(region[:end])
}

// ParseDeviceInfoResp parses the direct identification response sent by a
// device running normal firmware.
//
// Payload layout:
//
//	[VERSION_REGION(16)]
func ParseDeviceInfoResp(payload []byte) (version string, err error) {
	if len(payload) < VersionRegionSize {
		return "", fmt.Errorf("device-info response too short: got %d bytes, expected %d", len(payload), VersionRegionSize)
	}
	return ParseVersion(payload[:VersionRegionSize]), nil
}

// ParseDeviceInfoNotify parses an unsolicited bootloader beacon.
//
// Payload layout:
//
//	[UID(16)][VERSION_REGION(remainder)]
func ParseDeviceInfoNotify(payload []byte) (uid []byte, version string, err error) {
	if len(payload) < UIDSize+1 {
		return nil, "", fmt.Errorf("beacon too short: got %d bytes, minimum is %d", len(payload), UIDSize+1)
	}
	uid = make([]byte, UIDSize)
	copy(uid, payload[:UIDSize])
	return uid, ParseVersion(payload[UIDSize:]), nil
}

// FlashAck is the acknowledgement for one programmed firmware page.
type FlashAck struct {
	// Timestamp echoes the session timestamp from the page message
	Timestamp uint32

	// Index echoes the acknowledged page index
	Index uint16

	// ErrorCode is zero on success, or a device error code
	ErrorCode uint16
}

// ParseFlashAck parses a program-firmware-page acknowledgement.
//
// Payload layout:
//
//	[TIMESTAMP(4)][INDEX(2)][ERROR(2)]
func ParseFlashAck(payload []byte) (*FlashAck, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("flash ack too short: got %d bytes, expected 8", len(payload))
	}
	return &FlashAck{
		Timestamp: binary.LittleEndian.Uint32(payload[0:4]),
		Index:     binary.LittleEndian.Uint16(payload[4:6]),
		ErrorCode: binary.LittleEndian.Uint16(payload[6:8]),
	}, nil
}

// EEPROMChunk is one chunk of EEPROM returned by a read response.
type EEPROMChunk struct {
	// Addr echoes the requested address
	Addr uint16

	// Data is the chunk contents
	Data []byte
}

// ParseEEPROMReadResp parses a read-EEPROM response.
//
// Payload layout:
//
//	[ADDR(2)][SIZE(1)][PAD(1)][DATA(SIZE)]
func ParseEEPROMReadResp(payload []byte) (*EEPROMChunk, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("EEPROM read response too short: got %d bytes, minimum is 4", len(payload))
	}
	size := int(payload[2])
	if size == 0 || size > EEPROMChunkSize {
		return nil, fmt.Errorf("EEPROM read response size %d out of range: maximum is %d", size, EEPROMChunkSize)
	}
	if len(payload) < 4+size {
		return nil, fmt.Errorf("EEPROM read response truncated: got %d bytes, expected %d", len(payload), 4+size)
	}

	chunk := &EEPROMChunk{
		Addr: binary.LittleEndian.Uint16(payload[0:2]),
		Data: make([]byte, size),
	}
	copy(chunk.Data, payload[4:4+size])
	return chunk, nil
}

// ParseEEPROMWriteResp parses a write-EEPROM response, returning the echoed
// address and the device error code (zero on success).
//
// Payload layout:
//
//	[ADDR(2)][ERROR(1)][PAD(1)]
func ParseEEPROMWriteResp(payload []byte) (addr uint16, errorCode byte, err error) {
	if len(payload) < 4 {
		return 0, 0, fmt.Errorf("EEPROM write response too short: got %d bytes, expected 4", len(payload))
	}
	return binary.LittleEndian.Uint16(payload[0:2]), payload[2], nil
}

// Telemetry is an RSSI/battery sample reported by a device in normal mode.
type Telemetry struct {
	// RSSI is the received signal strength indicator, raw device units
	RSSI int16

	// NoiseLevel is the squelch noise level, raw device units
	NoiseLevel byte

	// BatteryMillivolts is the measured battery voltage
	BatteryMillivolts uint16
}

// ParseTelemetryResp parses an RSSI/battery telemetry response.
//
// Payload layout:
//
//	[RSSI(2)][NOISE(1)][PAD(1)][BATTERY_MV(2)]
func ParseTelemetryResp(payload []byte) (*Telemetry, error) {
	if len(payload) < 6 {
		return nil, fmt.Errorf("telemetry response too short: got %d bytes, expected 6", len(payload))
	}
	return &Telemetry{
		RSSI:              int16(binary.LittleEndian.Uint16(payload[0:2])),
		NoiseLevel:        payload[2],
		BatteryMillivolts: binary.LittleEndian.Uint16(payload[4:6]),
	}, nil
}

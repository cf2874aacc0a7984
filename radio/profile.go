package radio

import (
	"strconv"
	"strings"

	"github.com/qshosfw/squelch-sub000/protocol"
)

// MemoryMap describes where a device model keeps its data blocks. Offsets
// are EEPROM addresses; the session treats all block contents as opaque.
type MemoryMap struct {
	// CalibrationOffset is the address of the calibration block
	CalibrationOffset uint16

	// CalibrationSize is the calibration block size in bytes
	CalibrationSize int

	// ChannelBase is the address of the first channel record
	ChannelBase uint16

	// ChannelStride is the spacing between channel records
	ChannelStride uint16

	// ChannelCount is the number of channel records
	ChannelCount int

	// SettingsBase is the address of the settings block
	SettingsBase uint16

	// SettingsSize is the settings block size in bytes
	SettingsSize int
}

// Profile supplies model-specific knowledge: the memory map for a given
// firmware version, and codecs between on-device and interchange block
// encodings. The session never interprets block contents itself.
type Profile interface {
	// Model names the device model this profile describes
	Model() string

	// MemoryMap returns the memory map for a firmware version
	MemoryMap(firmwareVersion string) MemoryMap

	// EncodeBlock converts a block from interchange form to the on-device
	// encoding before writing
	EncodeBlock(offset uint16, data []byte) ([]byte, error)

	// DecodeBlock converts a block read from the device to interchange form
	DecodeBlock(offset uint16, raw []byte) ([]byte, error)
}

// GenericProfile is the default profile: pass-through block codecs and the
// stock memory map, with the calibration block address selected by firmware
// major version.
type GenericProfile struct{}

// Model implements Profile.
func (GenericProfile) Model() string { return "generic" }

// MemoryMap implements Profile. Firmware with major version 5 or later moved
// the calibration block; versions that cannot be parsed are treated as
// legacy.
func (GenericProfile) MemoryMap(firmwareVersion string) MemoryMap {
	offset := uint16(protocol.CalibrationOffsetLegacy)
	if firmwareMajor(firmwareVersion) >= 5 {
		offset = protocol.CalibrationOffsetCurrent
	}
	return MemoryMap{
		CalibrationOffset: offset,
		CalibrationSize:   protocol.CalibrationBlockSize,
		ChannelBase:       0x0000,
		ChannelStride:     16,
		ChannelCount:      200,
		SettingsBase:      0x0E70,
		SettingsSize:      0x0190,
	}
}

// EncodeBlock implements Profile as a pass-through.
func (GenericProfile) EncodeBlock(offset uint16, data []byte) ([]byte, error) {
	return data, nil
}

// DecodeBlock implements Profile as a pass-through.
func (GenericProfile) DecodeBlock(offset uint16, raw []byte) ([]byte, error) {
	return raw, nil
}

// firmwareMajor extracts the leading major version number from a firmware
// version string such as "5.00.01", tolerating a non-numeric prefix like
// "v5.00". Returns 0 when no number is found.
func firmwareMajor(version string) int {
	start := -1
	for i := 0; i < len(version); i++ {
		if version[i] >= '0' && version[i] <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0
	}

	rest := version[start:]
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}

	major, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return major
}

package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/qshosfw/squelch-sub000/protocol"
)

// eepromChunkTimeout is the per-attempt deadline for one EEPROM chunk.
// Chunks are small and answered quickly, so each retry gets its own short
// window instead of the full response timeout.
const eepromChunkTimeout = 300 * time.Millisecond

// BackupCalibration reads the device's full calibration block.
//
// The device is identified first: the firmware version selects the
// calibration block address (unless overridden via WithCalibrationOffset),
// and the identification also primes the device with the session timestamp.
// The block is returned in interchange form via the profile's decoder.
func (s *Session) BackupCalibration(ctx context.Context) ([]byte, error) {
	info, err := s.Identify(ctx)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	offset := s.calibrationOffset(info.Version)
	s.logInfo("calibration backup", "offset", fmt.Sprintf("0x%04X", offset), "version", info.Version)

	block, err := s.ReadBlock(ctx, offset)
	if err != nil {
		return nil, err
	}

	decoded, err := s.config.Profile.DecodeBlock(offset, block)
	if err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}

	s.events.publish(LogEvent{Kind: LogSuccess, Message: fmt.Sprintf("backed up %d bytes from 0x%04X", len(decoded), offset)})
	return decoded, nil
}

// RestoreCalibration writes a full calibration block back to the device and
// reboots it so the new values take effect. The data must be exactly one
// block; partial restores are refused.
func (s *Session) RestoreCalibration(ctx context.Context, data []byte) error {
	if len(data) != protocol.CalibrationBlockSize {
		return &ValidationError{Reason: fmt.Sprintf("calibration data must be exactly %d bytes, got %d", protocol.CalibrationBlockSize, len(data))}
	}

	info, err := s.Identify(ctx)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	offset := s.calibrationOffset(info.Version)
	s.logInfo("calibration restore", "offset", fmt.Sprintf("0x%04X", offset), "version", info.Version)

	encoded, err := s.config.Profile.EncodeBlock(offset, data)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	if len(encoded) != protocol.CalibrationBlockSize {
		return &ValidationError{Reason: fmt.Sprintf("profile encoded block to %d bytes, expected %d", len(encoded), protocol.CalibrationBlockSize)}
	}

	if err := s.WriteBlock(ctx, offset, encoded); err != nil {
		return err
	}

	// The device applies the written block on restart; the reboot gets no
	// acknowledgement.
	if err := s.Reboot(); err != nil {
		return err
	}

	s.events.publish(LogEvent{Kind: LogSuccess, Message: fmt.Sprintf("restored %d bytes to 0x%04X", len(data), offset)})
	return nil
}

// ReadBlock reads one full calibration-sized block starting at offset, in
// fixed 16-byte chunks.
func (s *Session) ReadBlock(ctx context.Context, offset uint16) ([]byte, error) {
	chunks := protocol.CalibrationBlockSize / protocol.EEPROMChunkSize
	block := make([]byte, 0, protocol.CalibrationBlockSize)

	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled: %w", err)
		}

		addr := offset + uint16(i*protocol.EEPROMChunkSize)
		data, err := s.readChunk(ctx, addr)
		if err != nil {
			return nil, err
		}
		block = append(block, data...)

		s.events.publish(ProgressEvent{
			Operation: "read",
			Current:   len(block),
			Total:     protocol.CalibrationBlockSize,
			Percent:   len(block) * 100 / protocol.CalibrationBlockSize,
		})
	}

	return block, nil
}

// WriteBlock writes one full calibration-sized block starting at offset, in
// fixed 16-byte chunks. The data must be exactly one block.
func (s *Session) WriteBlock(ctx context.Context, offset uint16, data []byte) error {
	if len(data) != protocol.CalibrationBlockSize {
		return &ValidationError{Reason: fmt.Sprintf("block must be exactly %d bytes, got %d", protocol.CalibrationBlockSize, len(data))}
	}

	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		addr := offset + uint16(written)
		chunk := data[written : written+protocol.EEPROMChunkSize]
		if err := s.writeChunk(ctx, addr, chunk); err != nil {
			return err
		}
		written += len(chunk)

		s.events.publish(ProgressEvent{
			Operation: "write",
			Current:   written,
			Total:     protocol.CalibrationBlockSize,
			Percent:   written * 100 / protocol.CalibrationBlockSize,
		})
	}

	return nil
}

// readChunk reads one 16-byte chunk, retrying within the configured budget.
// A response counts only if it echoes the requested address; responses for
// other addresses are stale retransmissions and are skipped.
func (s *Session) readChunk(ctx context.Context, addr uint16) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.EEPROMRetries; attempt++ {
		cmd, err := protocol.BuildEEPROMReadCmd(addr, protocol.EEPROMChunkSize, s.timestamp)
		if err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		if err := s.send(protocol.MsgEEPROMRead, cmd); err != nil {
			return nil, err
		}

		m, err := s.wait(ctx, fmt.Sprintf("read 0x%04X", addr), eepromChunkTimeout, func(msgType uint16, payload []byte) bool {
			if msgType != protocol.MsgEEPROMReadResp {
				return false
			}
			chunk, err := protocol.ParseEEPROMReadResp(payload)
			return err == nil && chunk.Addr == addr
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			s.logDebug("chunk read retry", "addr", fmt.Sprintf("0x%04X", addr), "attempt", attempt+1)
			continue
		}

		chunk, err := protocol.ParseEEPROMReadResp(m.payload)
		if err != nil {
			lastErr = err
			continue
		}
		return chunk.Data, nil
	}

	return nil, fmt.Errorf("EEPROM read at 0x%04X: %w", addr, lastErr)
}

// writeChunk writes one 16-byte chunk, retrying within the configured
// budget. Acceptance requires the echoed address to match and a zero device
// error code.
func (s *Session) writeChunk(ctx context.Context, addr uint16, data []byte) error {
	cmd, err := protocol.BuildEEPROMWriteCmd(addr, s.timestamp, data)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}

	var lastErr error
	for attempt := 0; attempt < s.config.EEPROMRetries; attempt++ {
		if err := s.send(protocol.MsgEEPROMWrite, cmd); err != nil {
			return err
		}

		m, err := s.wait(ctx, fmt.Sprintf("write 0x%04X", addr), eepromChunkTimeout, func(msgType uint16, payload []byte) bool {
			if msgType != protocol.MsgEEPROMWriteResp {
				return false
			}
			echoed, _, err := protocol.ParseEEPROMWriteResp(payload)
			return err == nil && echoed == addr
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			s.logDebug("chunk write retry", "addr", fmt.Sprintf("0x%04X", addr), "attempt", attempt+1)
			continue
		}

		_, code, err := protocol.ParseEEPROMWriteResp(m.payload)
		if err != nil {
			lastErr = err
			continue
		}
		if code != protocol.StatusOK {
			lastErr = &protocol.DeviceError{Operation: "EEPROM write", Code: uint16(code)}
			continue
		}
		return nil
	}

	return fmt.Errorf("EEPROM write at 0x%04X: %w", addr, lastErr)
}

// calibrationOffset resolves the calibration block address: an explicit
// override wins, otherwise the profile's memory map for this firmware
// version decides.
func (s *Session) calibrationOffset(version string) uint16 {
	if s.config.CalibrationOffsetSet {
		return s.config.CalibrationOffset
	}
	return s.config.Profile.MemoryMap(version).CalibrationOffset
}

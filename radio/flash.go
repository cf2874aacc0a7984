package radio

import (
	"context"
	"fmt"

	"github.com/qshosfw/squelch-sub000/fwimage"
	"github.com/qshosfw/squelch-sub000/protocol"
)

// handshakeEchoes is the number of version-prefix echoes sent to the
// bootloader before page transfer begins, one per observed beacon.
const handshakeEchoes = 3

// Flash programs a firmware image into a bootloader-mode device.
//
// The sequence is: wait for the device's beacons to stabilize, hand back the
// observed bootloader version prefix to open the transfer, then stream fixed
// 256-byte pages, each acknowledged by index. A page is retried on timeout,
// index mismatch, or a device-reported error; consecutive failures beyond
// the retry budget abort the transfer. There is no resume: a failed transfer
// restarts from page zero on the next attempt.
//
// Progress events carry pages completed out of total and reach 100% only
// when every page has been acknowledged.
//
// Example:
//
//	fw, err := fwimage.Load("radio.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sess.Flash(ctx, fw); err != nil {
//	    log.Fatal(err)
//	}
func (s *Session) Flash(ctx context.Context, fw *fwimage.Firmware) error {
	if fw == nil {
		return &ValidationError{Reason: "firmware cannot be nil"}
	}

	info, err := s.WaitForDevice(ctx)
	if err != nil {
		return fmt.Errorf("wait for device: %w", err)
	}

	if err := s.handshake(ctx, info.Version); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	pages := fw.Pages()
	total := len(pages)
	s.logInfo("starting transfer", "pages", total, "bytes", len(fw.Data))

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		if err := s.sendPage(ctx, uint16(i), uint16(total), page); err != nil {
			s.events.publish(LogEvent{Kind: LogError, Message: fmt.Sprintf("page %d/%d failed", i+1, total)})
			return fmt.Errorf("page %d/%d: %w", i+1, total, err)
		}

		s.events.publish(ProgressEvent{
			Operation: "flash",
			Current:   i + 1,
			Total:     total,
			Percent:   (i + 1) * 100 / total,
		})
	}

	s.logInfo("transfer complete", "pages", total)
	s.events.publish(LogEvent{Kind: LogSuccess, Message: fmt.Sprintf("flashed %d pages", total)})
	return nil
}

// handshake opens the transfer by echoing the first characters of the
// observed bootloader version, once immediately and once per further beacon.
// Leftover beacon traffic is drained afterwards so it cannot shadow the
// first page acknowledgement.
func (s *Session) handshake(ctx context.Context, version string) error {
	for i := 0; i < handshakeEchoes; i++ {
		if i > 0 {
			_, err := s.wait(ctx, "handshake beacon", s.config.ResponseTimeout, func(msgType uint16, payload []byte) bool {
				return msgType == protocol.MsgDeviceInfoNotify
			})
			if err != nil {
				return err
			}
		}

		if err := s.send(protocol.MsgBootVersionHandshake, protocol.BuildBootVersionHandshake(version, s.timestamp)); err != nil {
			return err
		}
	}

	s.drainInbox()
	s.logDebug("handshake complete", "version", version, "echoes", handshakeEchoes)
	return nil
}

// sendPage transmits one page and waits for its acknowledgement, retrying
// within the configured budget.
func (s *Session) sendPage(ctx context.Context, index, total uint16, page []byte) error {
	cmd, err := protocol.BuildFlashPageCmd(s.timestamp, index, total, page)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}

	var lastErr error
	for attempt := 0; attempt < s.config.FlashRetries; attempt++ {
		if err := s.send(protocol.MsgFlashPage, cmd); err != nil {
			return err
		}

		m, err := s.wait(ctx, fmt.Sprintf("page %d ack", index), s.config.ResponseTimeout, func(msgType uint16, payload []byte) bool {
			return msgType == protocol.MsgFlashPageAck
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			s.logDebug("page retry", "index", index, "attempt", attempt+1, "error", err)
			continue
		}

		ack, err := protocol.ParseFlashAck(m.payload)
		if err != nil {
			lastErr = err
			continue
		}
		if ack.Index != index {
			lastErr = fmt.Errorf("ack for page %d, expected %d", ack.Index, index)
			continue
		}
		if ack.ErrorCode != protocol.StatusOK {
			lastErr = &protocol.DeviceError{Operation: "program page", Code: ack.ErrorCode}
			s.logDebug("page rejected", "index", index, "code", ack.ErrorCode)
			continue
		}

		return nil
	}

	return fmt.Errorf("after %d attempts: %w", s.config.FlashRetries, lastErr)
}

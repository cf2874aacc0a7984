package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/qshosfw/squelch-sub000/protocol"
)

// DeviceInfo identifies a connected radio.
type DeviceInfo struct {
	// Version is the firmware or bootloader version string
	Version string

	// UID is the device unique ID. Only bootloader beacons carry it; in
	// firmware mode it is all zeros.
	UID [protocol.UIDSize]byte

	// Bootloader is true when the device answered with a bootloader beacon
	// rather than a firmware info response
	Bootloader bool
}

// Identify determines what is on the other end of the link. It sends a
// device-info request and accepts whichever arrives first: a direct response
// (device running normal firmware) or an unsolicited beacon (device sitting
// in its bootloader, which ignores the request but keeps beaconing).
func (s *Session) Identify(ctx context.Context) (*DeviceInfo, error) {
	if err := s.send(protocol.MsgDeviceInfoReq, protocol.BuildDeviceInfoReq(s.timestamp)); err != nil {
		return nil, err
	}

	m, err := s.wait(ctx, "identify", s.config.ResponseTimeout, func(msgType uint16, payload []byte) bool {
		return msgType == protocol.MsgDeviceInfoResp || msgType == protocol.MsgDeviceInfoNotify
	})
	if err != nil {
		return nil, err
	}

	info := &DeviceInfo{}
	switch m.msgType {
	case protocol.MsgDeviceInfoResp:
		version, err := protocol.ParseDeviceInfoResp(m.payload)
		if err != nil {
			return nil, err
		}
		info.Version = version

	case protocol.MsgDeviceInfoNotify:
		uid, version, err := protocol.ParseDeviceInfoNotify(m.payload)
		if err != nil {
			return nil, err
		}
		copy(info.UID[:], uid)
		info.Version = version
		info.Bootloader = true
	}

	mode := "firmware"
	if info.Bootloader {
		mode = "bootloader"
	}
	s.logInfo("device identified", "mode", mode, "version", info.Version)
	s.events.publish(LogEvent{Kind: LogSuccess, Message: fmt.Sprintf("found %s device, version %s", mode, info.Version)})

	return info, nil
}

// beaconDetector debounces bootloader beacons. A device is considered
// stably present only after beaconRequired consecutive inter-arrival
// intervals inside [beaconMinInterval, beaconMaxInterval]; any interval
// outside the window, including the gap before the first beacon, resets
// the count. This rejects stray beacons decoded out of line noise and
// devices still settling after power-up.
type beaconDetector struct {
	prev  time.Time
	count int
}

const (
	// beaconRequired is the number of consecutive in-window intervals
	// needed to declare the device present
	beaconRequired = 5

	// beaconMinInterval rejects implausibly tight beacon bursts
	beaconMinInterval = 5 * time.Millisecond

	// beaconMaxInterval rejects gaps too long for an idle bootloader
	beaconMaxInterval = 1000 * time.Millisecond
)

// observe records one beacon arrival and reports whether the device is now
// considered stably present.
func (d *beaconDetector) observe(t time.Time) bool {
	if !d.prev.IsZero() {
		interval := t.Sub(d.prev)
		if interval >= beaconMinInterval && interval <= beaconMaxInterval {
			d.count++
		} else {
			d.count = 0
		}
	}
	d.prev = t
	return d.count >= beaconRequired
}

// WaitForDevice blocks until a bootloader-mode device is stably present,
// debouncing its periodic beacons. It fails with a TimeoutError when the
// detection budget elapses first.
func (s *Session) WaitForDevice(ctx context.Context) (*DeviceInfo, error) {
	budget := s.config.DetectBudget
	deadline := time.Now().Add(budget)
	detector := beaconDetector{}

	s.logInfo("waiting for device", "budget", budget.String())

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Operation: "device detection", Timeout: budget}
		}

		m, err := s.wait(ctx, "device detection", remaining, func(msgType uint16, payload []byte) bool {
			return msgType == protocol.MsgDeviceInfoNotify
		})
		if err != nil {
			return nil, err
		}

		uid, version, err := protocol.ParseDeviceInfoNotify(m.payload)
		if err != nil {
			s.logDebug("malformed beacon", "error", err)
			continue
		}

		if !detector.observe(m.recv) {
			continue
		}

		info := &DeviceInfo{Version: version, Bootloader: true}
		copy(info.UID[:], uid)

		s.logInfo("device present", "version", version, "uid", fmt.Sprintf("% X", uid))
		s.events.publish(LogEvent{Kind: LogSuccess, Message: fmt.Sprintf("bootloader %s present", version)})
		return info, nil
	}
}

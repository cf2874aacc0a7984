package radio

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/qshosfw/squelch-sub000/protocol"
)

// mockTransport is a scripted in-memory device. Frames written by the
// session are decoded and handed to the handler, which typically queues
// response frames. It can also emit periodic bootloader beacons.
type mockTransport struct {
	mu      sync.Mutex
	pending [][]byte
	dec     *protocol.Decoder
	handler func(msgType uint16, payload []byte)
	closed  bool

	beaconOn      bool
	beaconEvery   time.Duration
	beaconPayload []byte
	lastBeacon    time.Time
}

func newMockTransport() *mockTransport {
	return &mockTransport{dec: protocol.NewDecoder()}
}

func (m *mockTransport) ReadAvailable() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beaconOn && time.Since(m.lastBeacon) >= m.beaconEvery {
		m.lastBeacon = time.Now()
		frame, err := protocol.EncodeFrame(protocol.MsgDeviceInfoNotify, m.beaconPayload)
		if err != nil {
			return nil, err
		}
		return frame, nil
	}

	if len(m.pending) == 0 {
		return nil, nil
	}
	chunk := m.pending[0]
	m.pending = m.pending[1:]
	return chunk, nil
}

func (m *mockTransport) Write(p []byte) error {
	m.mu.Lock()
	m.dec.Feed(p)
	var msgs []message
	for {
		msgType, payload, ok := m.dec.Next()
		if !ok {
			break
		}
		msgs = append(msgs, message{msgType: msgType, payload: payload})
	}
	h := m.handler
	m.mu.Unlock()

	if h != nil {
		for _, msg := range msgs {
			h(msg.msgType, msg.payload)
		}
	}
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// queue enqueues one response frame for the session's reader.
func (m *mockTransport) queue(t *testing.T, msgType uint16, payload []byte) {
	t.Helper()
	frame, err := protocol.EncodeFrame(msgType, payload)
	if err != nil {
		t.Fatalf("queue frame: %v", err)
	}
	m.mu.Lock()
	m.pending = append(m.pending, frame)
	m.mu.Unlock()
}

// startBeacons makes the mock emit a bootloader beacon every interval.
func (m *mockTransport) startBeacons(interval time.Duration, payload []byte) {
	m.mu.Lock()
	m.beaconOn = true
	m.beaconEvery = interval
	m.beaconPayload = payload
	m.lastBeacon = time.Now()
	m.mu.Unlock()
}

func (m *mockTransport) stopBeacons() {
	m.mu.Lock()
	m.beaconOn = false
	m.mu.Unlock()
}

// beaconPayloadFor builds a beacon payload: 16-byte UID plus version region.
func beaconPayloadFor(version string) []byte {
	payload := make([]byte, protocol.UIDSize+protocol.VersionRegionSize)
	for i := 0; i < protocol.UIDSize; i++ {
		payload[i] = byte(0xA0 + i)
	}
	copy(payload[protocol.UIDSize:], version)
	return payload
}

// versionRegion builds a fixed-size NUL-terminated version region.
func versionRegion(version string) []byte {
	region := make([]byte, protocol.VersionRegionSize)
	copy(region, version)
	return region
}

func TestIdentifyFirmwareMode(t *testing.T) {
	mock := newMockTransport()
	mock.handler = func(msgType uint16, payload []byte) {
		if msgType == protocol.MsgDeviceInfoReq {
			mock.queue(t, protocol.MsgDeviceInfoResp, versionRegion("5.00.01"))
		}
	}

	sess := New(mock)
	defer func() { _ = sess.Close() }()

	info, err := sess.Identify(context.Background())
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if info.Version != "5.00.01" {
		t.Errorf("Version = %q, want %q", info.Version, "5.00.01")
	}
	if info.Bootloader {
		t.Error("Bootloader = true, want false")
	}
}

func TestIdentifyBootloaderMode(t *testing.T) {
	mock := newMockTransport()
	// A bootloader ignores the request but keeps beaconing.
	mock.queue(t, protocol.MsgDeviceInfoNotify, beaconPayloadFor("2.00.06"))

	sess := New(mock)
	defer func() { _ = sess.Close() }()

	info, err := sess.Identify(context.Background())
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !info.Bootloader {
		t.Error("Bootloader = false, want true")
	}
	if info.Version != "2.00.06" {
		t.Errorf("Version = %q, want %q", info.Version, "2.00.06")
	}
	if info.UID[0] != 0xA0 || info.UID[15] != 0xAF {
		t.Errorf("UID = % X, want A0..AF", info.UID)
	}
}

func TestIdentifyTimeout(t *testing.T) {
	mock := newMockTransport()

	sess := New(mock, WithTimeout(100*time.Millisecond))
	defer func() { _ = sess.Close() }()

	_, err := sess.Identify(context.Background())
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
}

func TestIdentifyCancelled(t *testing.T) {
	mock := newMockTransport()

	sess := New(mock, WithTimeout(5*time.Second))
	defer func() { _ = sess.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := sess.Identify(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestTelemetry(t *testing.T) {
	mock := newMockTransport()
	mock.handler = func(msgType uint16, payload []byte) {
		if msgType == protocol.MsgTelemetryReq {
			resp := make([]byte, 6)
			binary.LittleEndian.PutUint16(resp[0:2], uint16(0x10000-78)) // RSSI -78
			resp[2] = 3
			binary.LittleEndian.PutUint16(resp[4:6], 7900)
			mock.queue(t, protocol.MsgTelemetryResp, resp)
		}
	}

	sess := New(mock)
	defer func() { _ = sess.Close() }()

	tm, err := sess.Telemetry(context.Background())
	if err != nil {
		t.Fatalf("Telemetry: %v", err)
	}
	if tm.RSSI != -78 || tm.NoiseLevel != 3 || tm.BatteryMillivolts != 7900 {
		t.Errorf("Telemetry = %+v", tm)
	}
}

func TestWaitSkipsBeaconsBetweenResponses(t *testing.T) {
	mock := newMockTransport()
	mock.handler = func(msgType uint16, payload []byte) {
		if msgType == protocol.MsgTelemetryReq {
			// Interleave a beacon before the real response.
			mock.queue(t, protocol.MsgDeviceInfoNotify, beaconPayloadFor("2.00.06"))
			resp := make([]byte, 6)
			mock.queue(t, protocol.MsgTelemetryResp, resp)
		}
	}

	sess := New(mock)
	defer func() { _ = sess.Close() }()

	if _, err := sess.Telemetry(context.Background()); err != nil {
		t.Fatalf("Telemetry: %v", err)
	}
}

func TestCloseStopsReaderAndTransport(t *testing.T) {
	mock := newMockTransport()
	sess := New(mock)

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	mock.mu.Lock()
	closed := mock.closed
	mock.mu.Unlock()
	if !closed {
		t.Error("transport not closed")
	}
}

func TestBusFanOut(t *testing.T) {
	var bus Bus
	var mu sync.Mutex
	got := make(map[int]int)

	cancel1 := bus.Subscribe(func(e Event) {
		mu.Lock()
		got[1]++
		mu.Unlock()
	})
	cancel2 := bus.Subscribe(func(e Event) {
		mu.Lock()
		got[2]++
		mu.Unlock()
	})

	bus.publish(LogEvent{Kind: LogInfo, Message: "a"})
	cancel1()
	bus.publish(LogEvent{Kind: LogInfo, Message: "b"})
	cancel2()
	bus.publish(LogEvent{Kind: LogInfo, Message: "c"})

	mu.Lock()
	defer mu.Unlock()
	if got[1] != 1 {
		t.Errorf("subscriber 1 saw %d events, want 1", got[1])
	}
	if got[2] != 2 {
		t.Errorf("subscriber 2 saw %d events, want 2", got[2])
	}
}

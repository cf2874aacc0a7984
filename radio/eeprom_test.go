package radio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/qshosfw/squelch-sub000/protocol"
)

// chunkPattern generates deterministic chunk contents from an address.
func chunkPattern(addr uint16) []byte {
	data := make([]byte, protocol.EEPROMChunkSize)
	for i := range data {
		data[i] = byte((int(addr) + i) % 251)
	}
	return data
}

// eepromDevice scripts a device with identifiable firmware and a readable,
// writable EEPROM. It records every chunk address it serviced.
type eepromDevice struct {
	mock    *mockTransport
	version string

	mu     sync.Mutex
	reads  []uint16
	writes []uint16
	stored map[uint16][]byte
	reboot bool
}

func newEEPROMDevice(t *testing.T, version string) *eepromDevice {
	d := &eepromDevice{
		mock:    newMockTransport(),
		version: version,
		stored:  make(map[uint16][]byte),
	}
	d.mock.handler = func(msgType uint16, payload []byte) {
		switch msgType {
		case protocol.MsgDeviceInfoReq:
			d.mock.queue(t, protocol.MsgDeviceInfoResp, versionRegion(d.version))

		case protocol.MsgEEPROMRead:
			addr := binary.LittleEndian.Uint16(payload[0:2])
			size := int(payload[2])
			d.mu.Lock()
			d.reads = append(d.reads, addr)
			d.mu.Unlock()

			resp := make([]byte, 4+size)
			binary.LittleEndian.PutUint16(resp[0:2], addr)
			resp[2] = byte(size)
			copy(resp[4:], chunkPattern(addr))
			d.mock.queue(t, protocol.MsgEEPROMReadResp, resp)

		case protocol.MsgEEPROMWrite:
			addr := binary.LittleEndian.Uint16(payload[0:2])
			size := int(payload[2])
			d.mu.Lock()
			d.writes = append(d.writes, addr)
			d.stored[addr] = append([]byte(nil), payload[8:8+size]...)
			d.mu.Unlock()

			resp := make([]byte, 4)
			binary.LittleEndian.PutUint16(resp[0:2], addr)
			d.mock.queue(t, protocol.MsgEEPROMWriteResp, resp)

		case protocol.MsgReboot:
			d.mu.Lock()
			d.reboot = true
			d.mu.Unlock()
		}
	}
	return d
}

func TestBackupCalibrationReadsContiguousChunks(t *testing.T) {
	dev := newEEPROMDevice(t, "5.00.01")
	sess := New(dev.mock)
	defer func() { _ = sess.Close() }()

	var mu sync.Mutex
	lastPercent := -1
	cancel := sess.Events().Subscribe(func(e Event) {
		if p, ok := e.(ProgressEvent); ok && p.Operation == "read" {
			mu.Lock()
			lastPercent = p.Percent
			mu.Unlock()
		}
	})
	defer cancel()

	block, err := sess.BackupCalibration(context.Background())
	if err != nil {
		t.Fatalf("BackupCalibration: %v", err)
	}

	if len(block) != protocol.CalibrationBlockSize {
		t.Fatalf("block size = %d, want %d", len(block), protocol.CalibrationBlockSize)
	}

	// Firmware 5.x keeps calibration at the current offset; the backup must
	// be exactly 32 contiguous 16-byte reads from there.
	dev.mu.Lock()
	reads := append([]uint16(nil), dev.reads...)
	dev.mu.Unlock()

	wantChunks := protocol.CalibrationBlockSize / protocol.EEPROMChunkSize
	if len(reads) != wantChunks {
		t.Fatalf("read count = %d, want %d", len(reads), wantChunks)
	}
	for i, addr := range reads {
		want := uint16(protocol.CalibrationOffsetCurrent + i*protocol.EEPROMChunkSize)
		if addr != want {
			t.Errorf("read %d at 0x%04X, want 0x%04X", i, addr, want)
		}
	}

	for i := 0; i < wantChunks; i++ {
		addr := uint16(protocol.CalibrationOffsetCurrent + i*protocol.EEPROMChunkSize)
		if !bytes.Equal(block[i*16:(i+1)*16], chunkPattern(addr)) {
			t.Errorf("chunk %d contents wrong", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if lastPercent != 100 {
		t.Errorf("final progress = %d%%, want 100%%", lastPercent)
	}
}

func TestBackupCalibrationLegacyOffset(t *testing.T) {
	dev := newEEPROMDevice(t, "2.01.26")
	sess := New(dev.mock)
	defer func() { _ = sess.Close() }()

	if _, err := sess.BackupCalibration(context.Background()); err != nil {
		t.Fatalf("BackupCalibration: %v", err)
	}

	dev.mu.Lock()
	first := dev.reads[0]
	dev.mu.Unlock()
	if first != protocol.CalibrationOffsetLegacy {
		t.Errorf("first read at 0x%04X, want 0x%04X", first, protocol.CalibrationOffsetLegacy)
	}
}

func TestBackupCalibrationOffsetOverride(t *testing.T) {
	dev := newEEPROMDevice(t, "5.00.01")
	sess := New(dev.mock, WithCalibrationOffset(0x2000))
	defer func() { _ = sess.Close() }()

	if _, err := sess.BackupCalibration(context.Background()); err != nil {
		t.Fatalf("BackupCalibration: %v", err)
	}

	dev.mu.Lock()
	first := dev.reads[0]
	dev.mu.Unlock()
	if first != 0x2000 {
		t.Errorf("first read at 0x%04X, want 0x2000", first)
	}
}

func TestRestoreCalibration(t *testing.T) {
	dev := newEEPROMDevice(t, "2.01.26")
	sess := New(dev.mock)
	defer func() { _ = sess.Close() }()

	data := make([]byte, protocol.CalibrationBlockSize)
	for i := range data {
		data[i] = byte(i % 253)
	}

	if err := sess.RestoreCalibration(context.Background(), data); err != nil {
		t.Fatalf("RestoreCalibration: %v", err)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	wantChunks := protocol.CalibrationBlockSize / protocol.EEPROMChunkSize
	if len(dev.writes) != wantChunks {
		t.Fatalf("write count = %d, want %d", len(dev.writes), wantChunks)
	}

	var stored []byte
	for i := 0; i < wantChunks; i++ {
		addr := uint16(protocol.CalibrationOffsetLegacy + i*protocol.EEPROMChunkSize)
		chunk, ok := dev.stored[addr]
		if !ok {
			t.Fatalf("no write recorded at 0x%04X", addr)
		}
		stored = append(stored, chunk...)
	}
	if !bytes.Equal(stored, data) {
		t.Error("stored block does not match restored data")
	}

	if !dev.reboot {
		t.Error("no reboot sent after restore")
	}
}

func TestRestoreCalibrationRejectsWrongSize(t *testing.T) {
	dev := newEEPROMDevice(t, "2.01.26")
	sess := New(dev.mock)
	defer func() { _ = sess.Close() }()

	err := sess.RestoreCalibration(context.Background(), make([]byte, 100))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.writes) != 0 {
		t.Error("writes issued despite invalid input")
	}
}

func TestReadChunkRetriesOnAddressMismatch(t *testing.T) {
	mock := newMockTransport()
	var mu sync.Mutex
	attempts := 0
	mock.handler = func(msgType uint16, payload []byte) {
		if msgType != protocol.MsgEEPROMRead {
			return
		}
		addr := binary.LittleEndian.Uint16(payload[0:2])
		size := int(payload[2])

		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		resp := make([]byte, 4+size)
		if n == 1 {
			// Stale response for a different address; must be ignored and
			// the request retried after its chunk timeout.
			binary.LittleEndian.PutUint16(resp[0:2], addr+16)
		} else {
			binary.LittleEndian.PutUint16(resp[0:2], addr)
		}
		resp[2] = byte(size)
		mock.queue(t, protocol.MsgEEPROMReadResp, resp)
	}

	sess := New(mock)
	defer func() { _ = sess.Close() }()

	data, err := sess.readChunk(context.Background(), 0x1E00)
	if err != nil {
		t.Fatalf("readChunk: %v", err)
	}
	if len(data) != protocol.EEPROMChunkSize {
		t.Errorf("chunk size = %d, want %d", len(data), protocol.EEPROMChunkSize)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts < 2 {
		t.Errorf("attempts = %d, want at least 2", attempts)
	}
}

func TestFirmwareMajor(t *testing.T) {
	tests := []struct {
		version string
		want    int
	}{
		{"5.00.01", 5},
		{"2.01.26", 2},
		{"v5.00", 5},
		{"10.0", 10},
		{"", 0},
		{"beta", 0},
	}
	for _, tt := range tests {
		if got := firmwareMajor(tt.version); got != tt.want {
			t.Errorf("firmwareMajor(%q) = %d, want %d", tt.version, got, tt.want)
		}
	}
}

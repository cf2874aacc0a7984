package radio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qshosfw/squelch-sub000/protocol"
)

// message is one decoded message with its arrival time.
type message struct {
	msgType uint16
	payload []byte
	recv    time.Time
}

// Session owns a Transport and runs the request/response protocol over it.
// A background goroutine drains the transport into the frame decoder; waits
// are deadline- and context-aware.
//
// A Session supports one operation at a time. Event subscribers and the
// logger may be used concurrently, but callers must not overlap operations
// such as Flash and BackupCalibration.
type Session struct {
	transport Transport
	config    Config
	events    Bus

	// timestamp identifies this host session; the device echoes it in
	// session-scoped responses
	timestamp uint32

	mu      sync.Mutex
	decoder *protocol.Decoder
	inbox   []message
	readErr error

	signal    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates a Session over the given transport and starts its reader.
// The caller must Close the session to stop the reader and release the
// transport.
//
// Example:
//
//	port, err := serialport.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess := radio.New(port,
//	    radio.WithLogger(myLogger),
//	    radio.WithTimeout(3*time.Second),
//	)
//	defer sess.Close()
func New(transport Transport, opts ...Option) *Session {
	if transport == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Profile == nil {
		cfg.Profile = GenericProfile{}
	}

	s := &Session{
		transport: transport,
		config:    cfg,
		timestamp: uint32(time.Now().Unix()),
		decoder:   protocol.NewDecoder(),
		signal:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go s.readLoop()
	s.events.publish(StatusEvent{Connected: true})

	return s
}

// Events returns the session's event bus.
func (s *Session) Events() *Bus {
	return &s.events
}

// Close stops the reader goroutine and closes the transport. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.closeErr = s.transport.Close()
		s.events.publish(StatusEvent{Connected: false})
	})
	return s.closeErr
}

// readLoop drains the transport into the decoder until the session closes
// or the transport fails.
func (s *Session) readLoop() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		data, err := s.transport.ReadAvailable()
		if err != nil {
			s.mu.Lock()
			s.readErr = &TransportError{Op: "read", Err: err}
			s.mu.Unlock()
			s.notify()
			s.logError("transport read failed", "error", err)
			s.events.publish(StatusEvent{Connected: false, Err: err})
			return
		}

		if len(data) == 0 {
			select {
			case <-s.stop:
				return
			case <-time.After(s.config.PollInterval):
			}
			continue
		}

		now := time.Now()
		decoded := 0
		s.mu.Lock()
		s.decoder.Feed(data)
		for {
			msgType, payload, ok := s.decoder.Next()
			if !ok {
				break
			}
			s.inbox = append(s.inbox, message{msgType: msgType, payload: payload, recv: now})
			decoded++
		}
		s.mu.Unlock()

		if decoded > 0 {
			s.notify()
		}
	}
}

// notify wakes a waiter without blocking; the channel carries no backlog.
func (s *Session) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// send encodes and transmits one message.
func (s *Session) send(msgType uint16, payload []byte) error {
	frame, err := protocol.EncodeFrame(msgType, payload)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if err := s.transport.Write(frame); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	s.logDebug("frame sent", "msg_type", fmt.Sprintf("0x%04X", msgType), "bytes", len(frame))
	s.events.publish(LogEvent{Kind: LogTX, Message: fmt.Sprintf("sent 0x%04X (%d bytes)", msgType, len(frame))})
	return nil
}

// wait blocks until a message satisfying match arrives, the timeout expires,
// or ctx is cancelled. Messages that do not match are discarded: unsolicited
// beacons routinely interleave with responses and must not fail the wait.
func (s *Session) wait(ctx context.Context, op string, timeout time.Duration, match func(msgType uint16, payload []byte) bool) (message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		for len(s.inbox) > 0 {
			m := s.inbox[0]
			s.inbox = s.inbox[1:]
			if match(m.msgType, m.payload) {
				s.mu.Unlock()
				s.events.publish(LogEvent{Kind: LogRX, Message: fmt.Sprintf("received 0x%04X (%d bytes)", m.msgType, len(m.payload))})
				return m, nil
			}
			s.logDebug("skipping message", "msg_type", fmt.Sprintf("0x%04X", m.msgType), "while_waiting", op)
		}
		readErr := s.readErr
		s.mu.Unlock()

		if readErr != nil {
			return message{}, readErr
		}

		select {
		case <-s.signal:
		case <-timer.C:
			return message{}, &TimeoutError{Operation: op, Timeout: timeout}
		case <-ctx.Done():
			return message{}, fmt.Errorf("%s cancelled: %w", op, ctx.Err())
		}
	}
}

// drainInbox discards every queued message, typically leftover beacon
// traffic after a handshake.
func (s *Session) drainInbox() {
	s.mu.Lock()
	s.inbox = s.inbox[:0]
	s.mu.Unlock()
}

// Reboot asks the device to apply pending changes and restart. The device
// sends no response; delivery is fire-and-forget.
func (s *Session) Reboot() error {
	if err := s.send(protocol.MsgReboot, protocol.BuildRebootCmd()); err != nil {
		return err
	}
	s.logInfo("reboot requested")
	return nil
}

// Telemetry requests an RSSI/battery sample from a device running normal
// firmware.
func (s *Session) Telemetry(ctx context.Context) (*protocol.Telemetry, error) {
	if err := s.send(protocol.MsgTelemetryReq, protocol.BuildTelemetryReq(s.timestamp)); err != nil {
		return nil, err
	}

	m, err := s.wait(ctx, "telemetry", s.config.ResponseTimeout, func(msgType uint16, payload []byte) bool {
		return msgType == protocol.MsgTelemetryResp
	})
	if err != nil {
		return nil, err
	}

	return protocol.ParseTelemetryResp(m.payload)
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}

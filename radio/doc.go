// Package radio drives a handheld radio over a byte transport: device
// identification, calibration backup and restore, firmware flashing, and
// telemetry.
//
// # Session
//
// A Session owns a Transport and runs one operation at a time. A background
// goroutine drains the transport into the frame decoder; operations wait for
// specific messages with per-operation deadlines and honor context
// cancellation. Unsolicited bootloader beacons interleaving with responses
// are skipped, never treated as errors.
//
//	port, err := serialport.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess := radio.New(port, radio.WithTimeout(3*time.Second))
//	defer sess.Close()
//
//	info, err := sess.Identify(ctx)
//
// # Operations
//
// Identify reports whether the device is running normal firmware or sitting
// in its bootloader. BackupCalibration and RestoreCalibration transfer the
// full calibration block in fixed 16-byte chunks, selecting the block
// address from the firmware version. Flash waits for stable bootloader
// beacons, performs the version handshake, and streams 256-byte pages with
// per-page acknowledgement and retry.
//
// # Events
//
// Progress, log, and connection-status events fan out to any number of
// subscribers via the session's event bus:
//
//	cancel := sess.Events().Subscribe(func(e radio.Event) {
//	    if p, ok := e.(radio.ProgressEvent); ok {
//	        fmt.Printf("\r%s %3d%%", p.Operation, p.Percent)
//	    }
//	})
//	defer cancel()
//
// # Errors
//
// Failures surface as typed errors: TimeoutError for missing responses,
// TransportError for link failures, ValidationError for unusable host-side
// input, and protocol.DeviceError for errors the device itself reports after
// the retry budget is exhausted. Context cancellation wraps the context's
// error and is detectable with errors.Is.
package radio

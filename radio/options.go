package radio

import "time"

// Config holds the session configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Profile supplies the device memory map and block codecs (optional).
	// When nil, a GenericProfile is used.
	Profile Profile

	// ResponseTimeout is the deadline for a single expected response
	ResponseTimeout time.Duration

	// DetectBudget is the overall deadline for pre-flash device detection
	DetectBudget time.Duration

	// FlashRetries is the number of consecutive failures tolerated per page
	FlashRetries int

	// EEPROMRetries is the number of attempts per EEPROM chunk
	EEPROMRetries int

	// PollInterval is the reader goroutine's idle sleep between transport polls
	PollInterval time.Duration

	// CalibrationOffset overrides the version-derived calibration block
	// address when CalibrationOffsetSet is true
	CalibrationOffset uint16

	// CalibrationOffsetSet marks CalibrationOffset as an explicit override
	CalibrationOffsetSet bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ResponseTimeout: 2 * time.Second,
		DetectBudget:    5 * time.Second,
		FlashRetries:    3,
		EEPROMRetries:   5,
		PollInterval:    5 * time.Millisecond,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithLogger sets a logger for session operations.
//
// Example:
//
//	sess := radio.New(transport, radio.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProfile sets the device profile supplying the memory map and block
// codecs.
func WithProfile(p Profile) Option {
	return func(c *Config) {
		c.Profile = p
	}
}

// WithTimeout sets the deadline for a single expected response.
//
// Example:
//
//	sess := radio.New(transport, radio.WithTimeout(5*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ResponseTimeout = timeout
		}
	}
}

// WithDetectBudget sets the overall deadline for pre-flash device detection.
func WithDetectBudget(budget time.Duration) Option {
	return func(c *Config) {
		if budget > 0 {
			c.DetectBudget = budget
		}
	}
}

// WithFlashRetries sets the number of consecutive failures tolerated per
// firmware page before the transfer aborts.
func WithFlashRetries(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.FlashRetries = retries
		}
	}
}

// WithEEPROMRetries sets the number of attempts per EEPROM chunk.
func WithEEPROMRetries(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.EEPROMRetries = retries
		}
	}
}

// WithCalibrationOffset overrides the calibration block address that is
// otherwise derived from the firmware version.
//
// Example:
//
//	sess := radio.New(transport, radio.WithCalibrationOffset(0x1E00))
func WithCalibrationOffset(offset uint16) Option {
	return func(c *Config) {
		c.CalibrationOffset = offset
		c.CalibrationOffsetSet = true
	}
}

// Logger is an optional logging interface that can be provided to the
// session. This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	sess := radio.New(transport, radio.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

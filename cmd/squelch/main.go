// Command squelch identifies, configures, and reflashes handheld radios
// over a serial link.
//
// Usage:
//
//	squelch [flags] <command> [args]
//
// Commands:
//
//	ports              list serial ports
//	identify           report what is connected
//	telemetry          read an RSSI/battery sample
//	backup <out.qsh>   save the calibration block to a QSH file
//	restore <in.qsh>   write a calibration block back to the device
//	flash <image>      flash a firmware image (.bin or .hex)
//	inspect <file.qsh> print QSH container contents
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"time"

	"golang.org/x/term"

	"github.com/qshosfw/squelch-sub000/fwimage"
	"github.com/qshosfw/squelch-sub000/qsh"
	"github.com/qshosfw/squelch-sub000/radio"
	"github.com/qshosfw/squelch-sub000/serialport"
)

func main() {
	portFlag := flag.String("port", "", "serial port path")
	baudFlag := flag.Int("baud", 0, "serial baud rate")
	configFlag := flag.String("config", "", "config file path")
	timeoutFlag := flag.Duration("timeout", 0, "per-response timeout")
	offsetFlag := flag.Uint("offset", 0, "calibration offset override (0 = auto)")
	verboseFlag := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	configPath := *configFlag
	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath()
	}
	cfg, err := loadConfig(configPath, explicit)
	if err != nil {
		log.Fatal(err)
	}

	// Flags override the config file.
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	if *baudFlag != 0 {
		cfg.Baud = *baudFlag
	}
	if *timeoutFlag != 0 {
		cfg.Timeout = *timeoutFlag
	}
	if *offsetFlag != 0 {
		cfg.CalibrationOffset = uint16(*offsetFlag)
	}
	if *verboseFlag {
		cfg.Verbose = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *fileConfig, args []string) error {
	switch args[0] {
	case "ports":
		return cmdPorts()
	case "inspect":
		if len(args) < 2 {
			return fmt.Errorf("usage: squelch inspect <file.qsh>")
		}
		return cmdInspect(args[1])
	}

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	cancel := subscribeProgress(sess)
	defer cancel()

	switch args[0] {
	case "identify":
		return cmdIdentify(ctx, sess)
	case "telemetry":
		return cmdTelemetry(ctx, sess)
	case "backup":
		if len(args) < 2 {
			return fmt.Errorf("usage: squelch backup <out.qsh>")
		}
		return cmdBackup(ctx, sess, cfg, args[1])
	case "restore":
		if len(args) < 2 {
			return fmt.Errorf("usage: squelch restore <in.qsh>")
		}
		return cmdRestore(ctx, sess, args[1])
	case "flash":
		if len(args) < 2 {
			return fmt.Errorf("usage: squelch flash <image>")
		}
		return cmdFlash(ctx, sess, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// openSession opens the configured serial port and wraps it in a session.
func openSession(cfg *fileConfig) (*radio.Session, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("no serial port configured (use -port or the config file)")
	}

	var port *serialport.Port
	var err error
	if cfg.Baud != 0 {
		port, err = serialport.OpenBaud(cfg.Port, cfg.Baud)
	} else {
		port, err = serialport.Open(cfg.Port)
	}
	if err != nil {
		return nil, err
	}

	opts := []radio.Option{}
	if cfg.Timeout != 0 {
		opts = append(opts, radio.WithTimeout(cfg.Timeout))
	}
	if cfg.CalibrationOffset != 0 {
		opts = append(opts, radio.WithCalibrationOffset(cfg.CalibrationOffset))
	}
	if cfg.Verbose {
		opts = append(opts, radio.WithLogger(stdLogger{}))
	}

	return radio.New(port, opts...), nil
}

// subscribeProgress renders progress events: an in-place percentage on a
// terminal, one line per completed operation otherwise.
func subscribeProgress(sess *radio.Session) func() {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	return sess.Events().Subscribe(func(e radio.Event) {
		switch ev := e.(type) {
		case radio.ProgressEvent:
			if interactive {
				fmt.Printf("\r%s %3d%% (%d/%d)", ev.Operation, ev.Percent, ev.Current, ev.Total)
				if ev.Percent == 100 {
					fmt.Println()
				}
			} else if ev.Percent == 100 {
				fmt.Printf("%s: done\n", ev.Operation)
			}
		case radio.LogEvent:
			if ev.Kind == radio.LogError {
				fmt.Fprintln(os.Stderr, ev.Message)
			}
		}
	})
}

func cmdPorts() error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func cmdIdentify(ctx context.Context, sess *radio.Session) error {
	info, err := sess.Identify(ctx)
	if err != nil {
		return err
	}

	mode := "firmware"
	if info.Bootloader {
		mode = "bootloader"
	}
	fmt.Printf("mode:    %s\n", mode)
	fmt.Printf("version: %s\n", info.Version)
	if info.Bootloader {
		fmt.Printf("uid:     % X\n", info.UID)
	}
	return nil
}

func cmdTelemetry(ctx context.Context, sess *radio.Session) error {
	tm, err := sess.Telemetry(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("rssi:    %d\n", tm.RSSI)
	fmt.Printf("noise:   %d\n", tm.NoiseLevel)
	fmt.Printf("battery: %d mV\n", tm.BatteryMillivolts)
	return nil
}

func cmdBackup(ctx context.Context, sess *radio.Session, cfg *fileConfig, out string) error {
	info, err := sess.Identify(ctx)
	if err != nil {
		return err
	}

	block, err := sess.BackupCalibration(ctx)
	if err != nil {
		return err
	}

	profile := radio.GenericProfile{}
	offset := cfg.CalibrationOffset
	if offset == 0 {
		offset = profile.MemoryMap(info.Version).CalibrationOffset
	}

	f := qsh.New()
	f.Meta[qsh.TagGenerator] = "squelch"
	f.Meta[qsh.TagCreatedAt] = uint64(time.Now().Unix())
	f.Meta[qsh.TagRadioModel] = profile.Model()
	f.Meta[qsh.TagFirmwareVersion] = info.Version
	if err := f.AppendBlob(qsh.Metadata{
		qsh.TagBlobKind:     qsh.BlobKindCalibration,
		qsh.TagBlobOffset:   uint32(offset),
		qsh.TagBlobComplete: true,
	}, block); err != nil {
		return err
	}

	data, err := f.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func cmdRestore(ctx context.Context, sess *radio.Session, in string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	f, err := qsh.Parse(data)
	if err != nil {
		return err
	}

	for _, blob := range f.Blobs {
		if kind, ok := blob.Meta.Uint16(qsh.TagBlobKind); ok && kind == qsh.BlobKindCalibration {
			return sess.RestoreCalibration(ctx, blob.Data)
		}
	}
	return fmt.Errorf("%s contains no calibration blob", in)
}

func cmdFlash(ctx context.Context, sess *radio.Session, path string) error {
	fw, err := fwimage.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("flashing %s: %d bytes, %d pages\n", path, len(fw.Data), fw.PageCount())
	fmt.Println("put the radio in bootloader mode now")

	return sess.Flash(ctx, fw)
}

func cmdInspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := qsh.Parse(data)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d bytes, %d blobs\n", path, len(data), len(f.Blobs))
	printMetadata(f.Meta, "")

	for i, blob := range f.Blobs {
		fmt.Printf("blob %d: %d bytes\n", i, len(blob.Data))
		printMetadata(blob.Meta, "  ")
	}
	return nil
}

// printMetadata prints a TLV metadata map in ascending tag order.
func printMetadata(meta qsh.Metadata, indent string) {
	tags := make([]qsh.Tag, 0, len(meta))
	for tag := range meta {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	for _, tag := range tags {
		switch v := meta[tag].(type) {
		case []byte:
			fmt.Printf("%s%s: % X\n", indent, tagName(tag), v)
		case uint64:
			if tag == qsh.TagCreatedAt {
				fmt.Printf("%s%s: %s\n", indent, tagName(tag), time.Unix(int64(v), 0).Format(time.RFC3339))
				continue
			}
			fmt.Printf("%s%s: %d\n", indent, tagName(tag), v)
		case uint16:
			if tag == qsh.TagBlobKind {
				fmt.Printf("%s%s: %s\n", indent, tagName(tag), blobKindName(v))
				continue
			}
			fmt.Printf("%s%s: %d\n", indent, tagName(tag), v)
		case uint32:
			fmt.Printf("%s%s: 0x%04X\n", indent, tagName(tag), v)
		default:
			fmt.Printf("%s%s: %v\n", indent, tagName(tag), v)
		}
	}
}

func tagName(tag qsh.Tag) string {
	switch tag {
	case qsh.TagGenerator:
		return "generator"
	case qsh.TagCreatedAt:
		return "created"
	case qsh.TagRadioModel:
		return "model"
	case qsh.TagFirmwareVersion:
		return "firmware"
	case qsh.TagComment:
		return "comment"
	case qsh.TagBlobKind:
		return "kind"
	case qsh.TagBlobName:
		return "name"
	case qsh.TagBlobOffset:
		return "offset"
	case qsh.TagBlobCompression:
		return "compression"
	case qsh.TagBlobComplete:
		return "complete"
	default:
		return fmt.Sprintf("tag 0x%04X", uint16(tag))
	}
}

func blobKindName(kind uint16) string {
	switch kind {
	case qsh.BlobKindChannels:
		return "channels"
	case qsh.BlobKindSettings:
		return "settings"
	case qsh.BlobKindCalibration:
		return "calibration"
	case qsh.BlobKindFirmware:
		return "firmware"
	default:
		return fmt.Sprintf("unknown (%d)", kind)
	}
}

// stdLogger adapts the standard log package to the radio.Logger interface.
type stdLogger struct{}

func (stdLogger) Debug(msg string, kv ...interface{}) { log.Println(append([]interface{}{"DEBUG", msg}, kv...)...) }
func (stdLogger) Info(msg string, kv ...interface{})  { log.Println(append([]interface{}{"INFO", msg}, kv...)...) }
func (stdLogger) Error(msg string, kv ...interface{}) { log.Println(append([]interface{}{"ERROR", msg}, kv...)...) }

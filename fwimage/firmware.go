package fwimage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Constants for firmware image handling.
const (
	// PageSize is the fixed transfer unit for firmware pages
	PageSize = 256

	// MaxImageSize is the largest firmware image accepted, sized to the
	// 64 KiB flash parts this tooling targets
	MaxImageSize = 0x10000
)

// Firmware is a loaded firmware image ready for page-wise transfer.
type Firmware struct {
	// Data is the raw image, starting at the flash base address
	Data []byte
}

// Load reads a firmware image from a file. Files ending in .hex are parsed
// as Intel HEX records; everything else is taken as a raw binary image.
//
// Example:
//
//	fw, err := fwimage.Load("radio.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d pages\n", fw.PageCount())
func Load(path string) (*Firmware, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".hex") {
		return ParseHex(f)
	}
	return LoadReader(f)
}

// LoadReader reads a raw binary firmware image from any io.Reader.
func LoadReader(r io.Reader) (*Firmware, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return FromBytes(data)
}

// FromBytes wraps an in-memory raw image.
func FromBytes(data []byte) (*Firmware, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty firmware image")
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("firmware image too large: %d bytes, maximum is %d", len(data), MaxImageSize)
	}

	fw := &Firmware{Data: make([]byte, len(data))}
	copy(fw.Data, data)
	return fw, nil
}

// PageCount returns the number of pages the image occupies.
func (f *Firmware) PageCount() int {
	return (len(f.Data) + PageSize - 1) / PageSize
}

// Pages splits the image into fixed-size pages. The final page is
// zero-padded to the full page size, so every returned slice is exactly
// PageSize bytes.
func (f *Firmware) Pages() [][]byte {
	count := f.PageCount()
	pages := make([][]byte, 0, count)

	for i := 0; i < count; i++ {
		page := make([]byte, PageSize)
		copy(page, f.Data[i*PageSize:])
		pages = append(pages, page)
	}

	return pages
}

// Package fwimage loads firmware images for page-wise flashing.
//
// Two on-disk formats are supported: raw binary, and Intel HEX with data
// (00), EOF (01), and extended linear address (04) records. HEX images are
// assembled starting at the lowest written address with gaps zero-filled,
// and every record's checksum is verified during parsing.
//
// A loaded image splits into fixed 256-byte pages for transfer, with the
// final page zero-padded:
//
//	fw, err := fwimage.Load("radio.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, page := range fw.Pages() {
//	    send(i, fw.PageCount(), page)
//	}
package fwimage

package protocol

// CRC16/XMODEM parameters.
const (
	// CRC16Polynomial is the CRC-16 polynomial (0x1021)
	CRC16Polynomial = 0x1021

	// CRC16InitialValue is the CRC-16/XMODEM initial value (0x0000)
	CRC16InitialValue = 0x0000

	// CRC16HighBitMask is the high bit mask for CRC-16 calculations
	CRC16HighBitMask = 0x8000

	// BitsPerByte is the number of bits per byte
	BitsPerByte = 8
)

// CRC16 computes the CRC-16/XMODEM checksum used for frame integrity.
//
// Parameters:
//   - Polynomial: CRC16Polynomial, MSB-first
//   - Initial value: CRC16InitialValue
//   - No input/output reflection, no final XOR
//
// The checksum is always computed over the cleartext inner message,
// never over obfuscated bytes.
func CRC16(data []byte) uint16 {
	crc := uint16(CRC16InitialValue)

	for _, b := range data {
		crc ^= uint16(b) << BitsPerByte
		for i := 0; i < BitsPerByte; i++ {
			if crc&CRC16HighBitMask != 0 {
				crc = (crc << 1) ^ CRC16Polynomial
			} else {
				crc = crc << 1
			}
		}
	}

	return crc
}

package protocol

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty input",
			data: nil,
			want: 0x0000,
		},
		{
			name: "check string 123456789",
			data: []byte("123456789"),
			want: 0x31C3, // CRC-16/XMODEM check value
		},
		{
			name: "single zero byte",
			data: []byte{0x00},
			want: 0x0000,
		},
		{
			name: "single 0xFF byte",
			data: []byte{0xFF},
			want: 0x1EF0,
		},
		{
			name: "letter A",
			data: []byte("A"),
			want: 0x58E5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CRC16(tt.data)
			if got != tt.want {
				t.Errorf("CRC16() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestCRC16Incremental(t *testing.T) {
	// The CRC over concatenated data must differ from the CRC over either
	// part, and must be stable across calls.
	a := CRC16([]byte("hello"))
	b := CRC16([]byte("hello"))
	if a != b {
		t.Errorf("CRC16 not deterministic: 0x%04X != 0x%04X", a, b)
	}

	c := CRC16([]byte("hello world"))
	if c == a {
		t.Error("CRC16 of extended input should differ")
	}
}

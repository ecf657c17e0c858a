package utf8

import "testing"

func TestIsContinuation(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		want bool
	}{
		{"ascii", 'a', false},
		{"start-2-byte", 0b1100_0000, false},
		{"start-3-byte", 0b1110_0000, false},
		{"start-4-byte", 0b1111_0000, false},
		{"continuation-low", 0b1000_0000, true},
		{"continuation-high", 0b1011_1111, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContinuation(tt.b); got != tt.want {
				t.Errorf("IsContinuation(%08b) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}

func TestLeadingContinuationCount(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"none", []byte("abc"), 0},
		{"all continuation", []byte{0x80, 0x80, 0x80}, 3},
		{"leading then ascii", []byte{0x80, 0x80, 'a'}, 2},
		{"empty", []byte{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LeadingContinuationCount(tt.data); got != tt.want {
				t.Errorf("LeadingContinuationCount(%v) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}

func TestTrailingContinuationCount(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"none", []byte("abc"), 0},
		{"one trailing", []byte{'a', 0x80}, 1},
		{"capped at three", []byte{0x80, 0x80, 0x80, 0x80}, 3},
		{"empty", []byte{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrailingContinuationCount(tt.data); got != tt.want {
				t.Errorf("TrailingContinuationCount(%v) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}

func TestStripContinuation(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"no stripping needed", []byte("hello"), "hello"},
		{"strips both ends", []byte{0x80, 'h', 'i', 0x80}, "hi"},
		{"strips leading only", []byte{0x80, 0x80, 'h', 'i'}, "hi"},
		{"strips trailing only", []byte{'h', 'i', 0x80}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(StripContinuation(tt.data)); got != tt.want {
				t.Errorf("StripContinuation(%v) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}

func TestTruncationPoint(t *testing.T) {
	euro := []byte("€") // E2 82 AC, a complete 3-byte codepoint
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"ascii only", []byte("abc"), 3},
		{"complete multibyte at end", euro, len(euro)},
		{"truncated after start byte", euro[:1], 0},
		{"truncated after one continuation byte", euro[:2], 0},
		{"only continuation bytes", []byte{0x80, 0x80}, 0},
		{"empty", []byte{}, 0},
		{"complete char followed by truncated char", append(append([]byte{}, euro...), euro[:2]...), len(euro)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncationPoint(tt.data); got != tt.want {
				t.Errorf("TruncationPoint(%v) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}

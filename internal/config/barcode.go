package config

import (
	"fmt"
	"strings"
)

// BarcodeBits is the fixed width of every barcode.
const BarcodeBits = 4

// Barcode bit values. Black and White are the only symbols a shelf label carries.
const (
	Black = 1
	White = 2
)

// Barcode is an ordered 4-bit label read left-to-right along the scan direction.
type Barcode [BarcodeBits]int

// ParseBarcode accepts "1222", "1,2,2,2" or "1 2 2 2".
func ParseBarcode(s string) (Barcode, error) {
	var b Barcode
	clean := strings.NewReplacer(",", "", " ", "", "(", "", ")", "").Replace(s)
	if len(clean) != BarcodeBits {
		return b, fmt.Errorf("barcode %q must have %d bits", s, BarcodeBits)
	}
	for i, r := range clean {
		switch r {
		case '1':
			b[i] = Black
		case '2':
			b[i] = White
		default:
			return b, fmt.Errorf("barcode %q: bit %d must be 1 or 2, got %q", s, i, r)
		}
	}
	return b, nil
}

// Valid reports whether every bit is Black or White.
func (b Barcode) Valid() bool {
	for _, bit := range b {
		if bit != Black && bit != White {
			return false
		}
	}
	return true
}

// Matches reports whether a decoded sequence is exactly this barcode. A short
// read (anomalies dropped bits) never matches.
func (b Barcode) Matches(decoded []int) bool {
	if len(decoded) != BarcodeBits {
		return false
	}
	for i, bit := range decoded {
		if b[i] != bit {
			return false
		}
	}
	return true
}

func (b Barcode) String() string {
	return fmt.Sprintf("%d%d%d%d", b[0], b[1], b[2], b[3])
}

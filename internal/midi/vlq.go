package midi

import "fmt"

// MaxVLQ is the largest value a four-byte variable-length quantity can hold.
const MaxVLQ = 0x0FFFFFFF

// AppendVLQ appends the minimal variable-length encoding of n to dst:
// seven bits per byte, most significant group first, continuation bit set
// on every byte but the last.
func AppendVLQ(dst []byte, n uint32) ([]byte, error) {
	if n > MaxVLQ {
		return dst, fmt.Errorf("midi: 0x%08x is too large for a variable-length quantity", n)
	}

	var groups [4]byte
	i := len(groups) - 1
	groups[i] = byte(n & 0x7F)
	for n >>= 7; n != 0; n >>= 7 {
		i--
		groups[i] = byte(n&0x7F) | 0x80
	}
	return append(dst, groups[i:]...), nil
}

// EncodeVLQ returns the minimal variable-length encoding of n.
func EncodeVLQ(n uint32) ([]byte, error) {
	return AppendVLQ(make([]byte, 0, 4), n)
}

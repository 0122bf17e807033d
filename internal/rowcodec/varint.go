package rowcodec

import "encoding/binary"

// EncodeVarint appends u to buf as a LEB128 varint.
func EncodeVarint(buf []byte, u uint64) []byte {
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

// DecodeVarint reads a LEB128 varint from the front of buf, returning the
// remaining bytes, the decoded value, and whether decoding succeeded.
func DecodeVarint(buf []byte) ([]byte, uint64, bool) {
	var u uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if shift >= 64 {
			return nil, 0, false
		}
		u |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return buf[i+1:], u, true
		}
		shift += 7
	}
	return nil, 0, false
}

func encodeZigzag64(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

func decodeZigzag64(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// EncodeZigzag64 appends n to buf as a zigzag-encoded varint, favoring small
// magnitudes of either sign.
func EncodeZigzag64(buf []byte, n int64) []byte {
	return EncodeVarint(buf, encodeZigzag64(n))
}

// DecodeZigzag64 is the inverse of EncodeZigzag64.
func DecodeZigzag64(buf []byte) ([]byte, int64, bool) {
	rest, u, ok := DecodeVarint(buf)
	if !ok {
		return nil, 0, false
	}
	return rest, decodeZigzag64(u), true
}

// EncodeUint64 appends u to buf as 8 big-endian bytes.
func EncodeUint64(buf []byte, u uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	return append(buf, b[:]...)
}

package wire

import "fmt"

// WriteCompactInt writes v (a signed 32- or 64-bit value) as a length byte
// L (0..8) followed by L little-endian bytes. L=0 denotes the value 0 and
// is a complete one-byte encoding; for any other value, L is the smallest
// byte count such that sign-extending the low L bytes reproduces v exactly.
func (w *Writer) WriteCompactInt(v int64) error {
	l := signedBytesRequired(v)
	if err := w.WriteUint8(l); err != nil {
		return err
	}
	return w.writeLittleEndian(uint64(v), l)
}

// ReadCompactInt reads the wire form written by WriteCompactInt. The
// decoder accepts any L in [0,8], per the frame codec's contract.
func (r *Reader) ReadCompactInt() (int64, error) {
	l, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	if l > 8 {
		return 0, fmt.Errorf("compact int length byte out of range: %d", l)
	}
	if l == 0 {
		return 0, nil
	}
	u, err := r.readLittleEndian(l)
	if err != nil {
		return 0, err
	}
	return signExtend(u, l), nil
}

// WriteCompactIntPair encodes two non-negative longs hd <= hr as described
// in §4.1/§6: one nibble-pair length byte (high nibble = bytesRequiredFor
// hd, low nibble = bytesRequiredFor the delta hr-hd) followed by the two
// little-endian blobs. A single zero byte denotes (0, 0).
func (w *Writer) WriteCompactIntPair(hd, hr int64) error {
	if hd < 0 || hr < hd {
		return fmt.Errorf("compact int pair requires 0 <= hd <= hr, got hd=%d hr=%d", hd, hr)
	}
	delta := hr - hd
	lhd := unsignedBytesRequired(uint64(hd))
	ldelta := unsignedBytesRequired(uint64(delta))
	if err := w.WriteUint8(lhd<<4 | ldelta); err != nil {
		return err
	}
	if lhd > 0 {
		if err := w.writeLittleEndian(uint64(hd), lhd); err != nil {
			return err
		}
	}
	if ldelta > 0 {
		if err := w.writeLittleEndian(uint64(delta), ldelta); err != nil {
			return err
		}
	}
	return nil
}

// ReadCompactIntPair reads the wire form written by WriteCompactIntPair,
// returning (hd, hd+delta).
func (r *Reader) ReadCompactIntPair() (hd, hr int64, err error) {
	lengths, err := r.ReadUint8()
	if err != nil {
		return 0, 0, err
	}
	if lengths == 0 {
		return 0, 0, nil
	}
	lhd := lengths >> 4
	ldelta := lengths & 0x0F
	if lhd > 8 || ldelta > 8 {
		return 0, 0, fmt.Errorf("compact int pair length nibble out of range: 0x%02x", lengths)
	}
	var hdU, deltaU uint64
	if lhd > 0 {
		hdU, err = r.readLittleEndian(lhd)
		if err != nil {
			return 0, 0, err
		}
	}
	if ldelta > 0 {
		deltaU, err = r.readLittleEndian(ldelta)
		if err != nil {
			return 0, 0, err
		}
	}
	return int64(hdU), int64(hdU + deltaU), nil
}

func (w *Writer) writeLittleEndian(u uint64, l uint8) error {
	buf := make([]byte, l)
	for i := uint8(0); i < l; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	return w.WriteRaw(buf)
}

func (r *Reader) readLittleEndian(l uint8) (uint64, error) {
	buf, err := r.ReadRaw(int(l))
	if err != nil {
		return 0, err
	}
	var u uint64
	for i, b := range buf {
		u |= uint64(b) << (8 * uint(i))
	}
	return u, nil
}

// unsignedBytesRequired returns the smallest L >= 1 such that the top
// (8-L) bytes of v are zero, with L=0 reserved for v=0.
func unsignedBytesRequired(v uint64) uint8 {
	if v == 0 {
		return 0
	}
	for l := uint8(1); l <= 8; l++ {
		if l == 8 || v>>(8*l) == 0 {
			return l
		}
	}
	return 8
}

// signedBytesRequired returns the smallest L such that the low L bytes of
// v, sign-extended, reproduce v exactly (L=0 only for v=0).
func signedBytesRequired(v int64) uint8 {
	if v == 0 {
		return 0
	}
	for l := uint8(1); l < 8; l++ {
		if signExtend(uint64(v)&lowBytesMask(l), l) == v {
			return l
		}
	}
	return 8
}

func lowBytesMask(l uint8) uint64 {
	if l >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * l)) - 1
}

// signExtend interprets the low l bytes of u as a signed two's-complement
// integer and sign-extends to 64 bits.
func signExtend(u uint64, l uint8) int64 {
	if l >= 8 {
		return int64(u)
	}
	shift := 64 - 8*uint(l)
	return int64(u<<shift) >> shift
}

package emu

// AddOverflow returns a+b and whether the signed addition overflowed.
func AddOverflow(a, b uint32) (uint32, bool) {
	sum := a + b
	// Overflow when both operands share a sign the result does not.
	return sum, (^(a ^ b) & (a ^ sum) & 0x80000000) != 0
}

// SubOverflow returns a-b and whether the signed subtraction overflowed.
func SubOverflow(a, b uint32) (uint32, bool) {
	diff := a - b
	return diff, ((a ^ b) & (a ^ diff) & 0x80000000) != 0
}

// SetLessThan returns 1 if a < b as signed integers, otherwise 0.
func SetLessThan(a, b uint32) uint32 {
	if int32(a) < int32(b) {
		return 1
	}
	return 0
}

// SetLessThanUnsigned returns 1 if a < b as unsigned integers, otherwise 0.
func SetLessThanUnsigned(a, b uint32) uint32 {
	if a < b {
		return 1
	}
	return 0
}

// ShiftRightArithmetic shifts a right by n bits, replicating the sign bit.
func ShiftRightArithmetic(a uint32, n uint32) uint32 {
	return uint32(int32(a) >> (n & 0x1F))
}

// Mult returns the signed 64-bit product split into hi and lo words.
func Mult(a, b uint32) (hi, lo uint32) {
	p := uint64(int64(int32(a)) * int64(int32(b)))
	return uint32(p >> 32), uint32(p)
}

// Multu returns the unsigned 64-bit product split into hi and lo words.
func Multu(a, b uint32) (hi, lo uint32) {
	p := uint64(a) * uint64(b)
	return uint32(p >> 32), uint32(p)
}

// Div performs signed division, returning the remainder in hi and the
// quotient in lo. Division by zero and 0x80000000 / -1 produce the values
// the hardware produces instead of trapping.
func Div(n, d uint32) (hi, lo uint32) {
	sn, sd := int32(n), int32(d)
	switch {
	case sd == 0:
		if sn < 0 {
			return n, 1
		}
		return n, 0xFFFFFFFF
	case n == 0x80000000 && sd == -1:
		return 0, 0x80000000
	default:
		return uint32(sn % sd), uint32(sn / sd)
	}
}

// Divu performs unsigned division. Division by zero yields a quotient of
// 0xFFFFFFFF and leaves the dividend as the remainder.
func Divu(n, d uint32) (hi, lo uint32) {
	if d == 0 {
		return n, 0xFFFFFFFF
	}
	return n % d, n / d
}

// LoadLeft merges the aligned word mem into reg as LWL does for an
// address whose low two bits are offset.
func LoadLeft(reg, mem uint32, offset uint32) uint32 {
	switch offset & 3 {
	case 0:
		return reg&0x00FFFFFF | mem<<24
	case 1:
		return reg&0x0000FFFF | mem<<16
	case 2:
		return reg&0x000000FF | mem<<8
	default:
		return mem
	}
}

// LoadRight merges the aligned word mem into reg as LWR does.
func LoadRight(reg, mem uint32, offset uint32) uint32 {
	switch offset & 3 {
	case 0:
		return mem
	case 1:
		return reg&0xFF000000 | mem>>8
	case 2:
		return reg&0xFFFF0000 | mem>>16
	default:
		return reg&0xFFFFFF00 | mem>>24
	}
}

// StoreLeft returns the aligned word produced by SWL storing reg over mem.
func StoreLeft(mem, reg uint32, offset uint32) uint32 {
	switch offset & 3 {
	case 0:
		return mem&0xFFFFFF00 | reg>>24
	case 1:
		return mem&0xFFFF0000 | reg>>16
	case 2:
		return mem&0xFF000000 | reg>>8
	default:
		return reg
	}
}

// StoreRight returns the aligned word produced by SWR storing reg over mem.
func StoreRight(mem, reg uint32, offset uint32) uint32 {
	switch offset & 3 {
	case 0:
		return reg
	case 1:
		return mem&0x000000FF | reg<<8
	case 2:
		return mem&0x0000FFFF | reg<<16
	default:
		return mem&0x00FFFFFF | reg<<24
	}
}

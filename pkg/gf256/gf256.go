// Package gf256 implements arithmetic over GF(2^8) with the reduction
// polynomial 0x11D, the field used for raid6 Q parity.
package gf256

// Mul multiplies a and b in GF(2^8) using the add-and-shift algorithm.
// Bit-7 overflow during the shift is reduced by XOR with 0x1D.
func Mul(a, b byte) byte {
	var product byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			product ^= a
		}
		highBit := a & 0x80
		a <<= 1
		if highBit != 0 {
			a ^= 0x1d
		}
		b >>= 1
	}
	return product
}

// Coefficient returns the Q-parity weight for data chunk j: 2^(j mod 8),
// computed by repeated doubling in the field. The coefficient cycle has
// period 8, so chunk 0 and chunk 8 share the weight 1.
func Coefficient(j int) byte {
	c := byte(1)
	for i := 0; i < j%8; i++ {
		c = Mul(c, 2)
	}
	return c
}

package ir

import "github.com/holiman/uint256"

// U256 is the word type for every constant the IR carries: modular
// unsigned 256-bit arithmetic matching the target VM's native word size.
type U256 = uint256.Int

// U256FromUint64 builds a Literal operand from a small non-negative
// constant, the common case for loop bounds, slot indices and offsets.
func U256FromUint64(v uint64) Literal {
	return Literal{Value: uint256.NewInt(v)}
}

// U256FromDecimal builds a Literal operand from decimal digits, used by the
// parser when reading an IR text literal back in.
func U256FromDecimal(s string) (Literal, bool) {
	u, err := uint256.FromDecimal(s)
	if err != nil {
		return Literal{}, false
	}
	return Literal{Value: u}, true
}

// U256FromHex builds a Literal operand from a 0x-prefixed hex string,
// the form address and selector constants take in source.
func U256FromHex(s string) (Literal, bool) {
	u, err := uint256.FromHex(s)
	if err != nil {
		return Literal{}, false
	}
	return Literal{Value: u}, true
}

// U256FromBytes builds a Literal operand from big-endian bytes, used by
// the lowering for keccak-derived topic and selector words.
func U256FromBytes(b []byte) Literal {
	return Literal{Value: new(uint256.Int).SetBytes(b)}
}

// signExtend reinterprets a U256 as two's-complement signed for the
// sdiv/smod/slt/sgt/sar family, which all operate on the same bit
// pattern as their unsigned counterparts but branch on the sign bit.
func signExtend(v *U256) (neg bool, abs *U256) {
	if v.Sign() >= 0 {
		return false, v.Clone()
	}
	// v is "negative" in two's complement iff its top bit is set.
	top := new(U256).Rsh(v, 255)
	if top.IsZero() {
		return false, v.Clone()
	}
	abs = new(U256).Not(v)
	abs.AddUint64(abs, 1)
	return true, abs
}

// SDiv computes signed division with truncation toward zero, matching
// the target VM's SDIV semantics (div-by-zero yields 0).
func SDiv(a, b *U256) *U256 {
	if b.IsZero() {
		return new(U256)
	}
	aNeg, aAbs := signExtend(a)
	bNeg, bAbs := signExtend(b)
	q := new(U256).Div(aAbs, bAbs)
	if aNeg != bNeg {
		q = new(U256).Not(q)
		q.AddUint64(q, 1)
	}
	return q
}

// SMod computes signed remainder with the sign of the dividend.
func SMod(a, b *U256) *U256 {
	if b.IsZero() {
		return new(U256)
	}
	aNeg, aAbs := signExtend(a)
	_, bAbs := signExtend(b)
	r := new(U256).Mod(aAbs, bAbs)
	if aNeg && !r.IsZero() {
		r = new(U256).Not(r)
		r.AddUint64(r, 1)
	}
	return r
}

// SLt reports whether a < b under two's-complement signed comparison.
func SLt(a, b *U256) bool {
	aNeg, _ := signExtend(a)
	bNeg, _ := signExtend(b)
	if aNeg != bNeg {
		return aNeg
	}
	return a.Lt(b)
}

// SGt reports whether a > b under two's-complement signed comparison.
func SGt(a, b *U256) bool { return SLt(b, a) }

// SAR computes an arithmetic (sign-preserving) right shift by shift bits.
func SAR(value *U256, shift uint64) *U256 {
	if shift >= 256 {
		neg, _ := signExtend(value)
		if neg {
			return new(U256).Not(new(U256))
		}
		return new(U256)
	}
	neg, _ := signExtend(value)
	r := new(U256).Rsh(value, uint(shift))
	if !neg {
		return r
	}
	mask := new(U256).Lsh(new(U256).Not(new(U256)), uint(256-shift))
	return new(U256).Or(r, mask)
}

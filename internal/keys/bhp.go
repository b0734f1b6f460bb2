package keys

import (
	"context"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/twistededwards"
)

// DefaultDomain is the domain of the network's BHP256 instance.
const DefaultDomain = "AleoBHP256"

const (
	bhpNumWindows = 3
	bhpWindowSize = 57
	bhpChunkBits  = 3
	bhpHasherBits = bhpNumWindows * bhpWindowSize * bhpChunkBits

	// fieldBits is the width of a base field element; fieldDataBits is how
	// many of its low bits carry data.
	fieldBits     = 253
	fieldDataBits = fieldBits - 1
	bhpDomainBits = fieldDataBits - 64
	bhpBlockBits  = bhpHasherBits - fieldDataBits

	htcPersona     = "AleoHtC"
	htcDigestLen   = 64
	htcMaxAttempts = 8 * 32
)

// BHP256 is the Bowe-Hopwood-Pedersen hash with 3 windows of 57 chunks over
// the twisted Edwards curve whose base field is the BLS12-377 scalar field.
// Inputs longer than one block are chained through the previous digest.
type BHP256 struct {
	domain     []bool
	generators [bhpNumWindows]twistededwards.PointAffine
	order      *big.Int
}

// DefaultInit builds the default BHP256 hasher.
func DefaultInit(_ context.Context) (Hasher, error) {
	return NewBHP256(DefaultDomain)
}

func NewBHP256(domain string) (*BHP256, error) {
	domainBits := bytesToBitsLE([]byte(domain))
	if len(domainBits) > bhpDomainBits {
		return nil, fmt.Errorf("domain %q exceeds %d bits", domain, bhpDomainBits)
	}
	// [0...0 || domain], reversed as a whole.
	padded := make([]bool, bhpDomainBits)
	copy(padded, domainBits)
	for i, j := 0, len(padded)-1; i < j; i, j = i+1, j-1 {
		padded[i], padded[j] = padded[j], padded[i]
	}

	curve := twistededwards.GetEdwardsCurve()
	h := &BHP256{domain: padded, order: new(big.Int).Set(&curve.Order)}
	for i := range h.generators {
		g, _, err := hashToCurve(fmt.Sprintf("Aleo.BHP.%d.%d.%s.%d", bhpNumWindows, bhpWindowSize, domain, i))
		if err != nil {
			return nil, fmt.Errorf("generator %d: %w", i, err)
		}
		h.generators[i] = g
	}
	return h, nil
}

// HashToField hashes input bits and returns the x-coordinate of the digest.
// The first block is [domain || len(input) as u64 || input...]; every later
// block starts with the data bits of the previous digest.
func (h *BHP256) HashToField(input []bool) (string, error) {
	if len(input) == 0 {
		return "", fmt.Errorf("empty input")
	}

	var digest twistededwards.PointAffine
	preimage := make([]bool, 0, bhpHasherBits)
	for start := 0; start < len(input); start += bhpBlockBits {
		end := min(start+bhpBlockBits, len(input))
		preimage = preimage[:0]
		if start == 0 {
			preimage = append(preimage, h.domain...)
			preimage = appendUintBits(preimage, uint64(len(input)), 64)
		} else {
			preimage = append(preimage, elementBits(&digest.X)[:fieldDataBits]...)
		}
		preimage = append(preimage, input[start:end]...)

		var err error
		if digest, err = h.hashBlock(preimage); err != nil {
			return "", err
		}
	}

	x := digest.X.BigInt(new(big.Int))
	return x.String() + fieldSuffix, nil
}

// hashBlock computes sum_i G_i * sum_j (1-2*c2)(1+c0+2*c1)*16^j over the
// 3-bit chunks c of each window i.
func (h *BHP256) hashBlock(input []bool) (twistededwards.PointAffine, error) {
	var acc twistededwards.PointAffine
	acc.X.SetZero()
	acc.Y.SetOne()

	if len(input) <= bhpWindowSize || len(input) > bhpHasherBits {
		return acc, fmt.Errorf("block is %d bits, want %d to %d", len(input), bhpWindowSize+1, bhpHasherBits)
	}
	bits := input
	if rem := len(bits) % bhpChunkBits; rem != 0 {
		bits = append(append([]bool(nil), bits...), make([]bool, bhpChunkBits-rem)...)
	}

	windowBits := bhpWindowSize * bhpChunkBits
	sixteen := big.NewInt(16)
	for w := 0; w*windowBits < len(bits); w++ {
		window := bits[w*windowBits : min((w+1)*windowBits, len(bits))]
		scalar := new(big.Int)
		pow := big.NewInt(1)
		for c := 0; c < len(window); c += bhpChunkBits {
			term := big.NewInt(1 + int64(b2i(window[c])) + 2*int64(b2i(window[c+1])))
			term.Mul(term, pow)
			if window[c+2] {
				term.Neg(term)
			}
			scalar.Add(scalar, term)
			pow.Mul(pow, sixteen)
		}
		scalar.Mod(scalar, h.order)

		var p twistededwards.PointAffine
		p.ScalarMultiplication(&h.generators[w], scalar)
		acc.Add(&acc, &p)
	}
	return acc, nil
}

// hashToCurve samples a prime-order point from "<input> in <k>" for the
// first k that yields one. It also returns k.
func hashToCurve(input string) (twistededwards.PointAffine, int, error) {
	for k := 0; k < htcMaxAttempts; k++ {
		digest := blake2xs([]byte(fmt.Sprintf("%s in %d", input, k)), htcDigestLen, htcPersona)
		if p, ok := pointFromRandomBytes(digest); ok {
			return p, k, nil
		}
	}
	return twistededwards.PointAffine{}, 0, fmt.Errorf("no curve point for %q", input)
}

// pointFromRandomBytes reads a little-endian x-coordinate from the first 32
// bytes, with the top bit of byte 31 choosing the smaller y, then clears the
// cofactor.
func pointFromRandomBytes(b []byte) (twistededwards.PointAffine, bool) {
	var p twistededwards.PointAffine
	if len(b) < fr.Bytes {
		return p, false
	}
	var buf [fr.Bytes]byte
	copy(buf[:], b[:fr.Bytes])
	smaller := buf[fr.Bytes-1]&0x80 != 0
	buf[fr.Bytes-1] &= 0x1f

	x, err := fr.LittleEndian.Element(&buf)
	if err != nil || x.IsZero() {
		return p, false
	}
	lo, hi, ok := yFromX(&x)
	if !ok {
		return p, false
	}
	p.X = x
	if smaller {
		p.Y = lo
	} else {
		p.Y = hi
	}

	p.Double(&p)
	p.Double(&p)
	if p.IsZero() {
		return p, false
	}
	return p, true
}

// yFromX solves -x^2 + y^2 = 1 + d*x^2*y^2 for y and returns both roots,
// smaller first.
func yFromX(x *fr.Element) (fr.Element, fr.Element, bool) {
	curve := twistededwards.GetEdwardsCurve()
	var one, x2, num, den, y2, y, negY fr.Element
	one.SetOne()
	x2.Square(x)
	num.Mul(&curve.A, &x2)
	num.Sub(&num, &one)
	den.Mul(&curve.D, &x2)
	den.Sub(&den, &one)
	if den.IsZero() {
		return y, y, false
	}
	den.Inverse(&den)
	y2.Mul(&num, &den)
	if y.Sqrt(&y2) == nil {
		return y, y, false
	}
	negY.Neg(&y)
	if y.Cmp(&negY) < 0 {
		return y, negY, true
	}
	return negY, y, true
}

func elementBits(e *fr.Element) []bool {
	v := e.BigInt(new(big.Int))
	out := make([]bool, fieldBits)
	for i := range out {
		out[i] = v.Bit(i) == 1
	}
	return out
}

func b2i(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

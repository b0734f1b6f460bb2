package keys

// Plaintext bit layout, least significant bit first:
//
//	literal: 0 0 | variant u8 | size in bits u16 | value bits
//	struct:  0 1 | member count u8 | per member: name size in bits u8,
//	         name bytes, value size in bits u16, value bits

const (
	literalU16 uint8 = 10
	literalU32 uint8 = 11
)

type plaintextMember struct {
	name  string
	value []bool
}

func uintLiteralBits(variant uint8, size int, value uint64) []bool {
	out := []bool{false, false}
	out = appendUintBits(out, uint64(variant), 8)
	out = appendUintBits(out, uint64(size), 16)
	return appendUintBits(out, value, size)
}

func structBits(members []plaintextMember) []bool {
	out := []bool{false, true}
	out = appendUintBits(out, uint64(len(members)), 8)
	for _, m := range members {
		out = appendUintBits(out, uint64(8*len(m.name)), 8)
		out = append(out, bytesToBitsLE([]byte(m.name))...)
		out = appendUintBits(out, uint64(len(m.value)), 16)
		out = append(out, m.value...)
	}
	return out
}

// KeyBits encodes the composite key struct the way the program hashes it.
func KeyBits(roundID uint32, projectIndex uint16) []bool {
	return structBits([]plaintextMember{
		{name: "round_id", value: uintLiteralBits(literalU32, 32, uint64(roundID))},
		{name: "project_index", value: uintLiteralBits(literalU16, 16, uint64(projectIndex))},
	})
}

func appendUintBits(dst []bool, v uint64, n int) []bool {
	for i := 0; i < n; i++ {
		dst = append(dst, v>>i&1 == 1)
	}
	return dst
}

func bytesToBitsLE(b []byte) []bool {
	out := make([]bool, 0, 8*len(b))
	for _, c := range b {
		out = appendUintBits(out, uint64(c), 8)
	}
	return out
}

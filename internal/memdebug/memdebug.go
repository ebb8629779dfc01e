package memdebug

// PoisonByte is written over released memory.
const PoisonByte byte = 0xDB

// Poison overwrites p with PoisonByte.
func Poison(p []byte) {
	for i := range p {
		p[i] = PoisonByte
	}
}

// IsPoisoned reports whether every byte of p holds PoisonByte.
// An empty slice is not considered poisoned.
func IsPoisoned(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	for _, b := range p {
		if b != PoisonByte {
			return false
		}
	}
	return true
}

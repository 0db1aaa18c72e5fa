package sdo

func HasBit(n uint8, pos uint) bool {
	val := n & (1 << pos)
	return (val > 0)
}

func SetBit(n uint8, pos uint) uint8 {
	n |= (1 << pos)
	return n
}

func setBitIf(n uint8, pos uint, set bool) uint8 {
	if set {
		return SetBit(n, pos)
	}
	return n
}

// SplitN splits b into chunks of at most n bytes. An empty b yields one
// empty chunk.
func SplitN(b []byte, n int) [][]byte {
	if len(b) <= n {
		return [][]byte{b}
	}

	chunks := make([][]byte, 0, (len(b)+n-1)/n)
	for len(b) > n {
		chunks = append(chunks, b[:n:n])
		b = b[n:]
	}
	return append(chunks, b)
}

// Pad appends zero bytes to b up to minLength.
func Pad(b []byte, minLength int) []byte {
	if len(b) >= minLength {
		return b
	}
	return append(b, make([]byte, minLength-len(b))...)
}

package bsatn

// Cap bounds adversarial inputs on decode. Every variable-length read
// (string, bytes, array/product count prefix) is checked against
// MaxSequenceLength; every nested Product/Sum increments a depth counter
// checked against MaxRecursionDepth.
type Cap struct {
	MaxSequenceLength uint32
	MaxRecursionDepth int
}

// DefaultCap matches the defaults documented for the codec/dispatch layer.
func DefaultCap() Cap {
	return Cap{
		MaxSequenceLength: 64 << 20, // 64 MiB
		MaxRecursionDepth: 128,
	}
}

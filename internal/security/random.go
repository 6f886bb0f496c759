package security

import (
	"crypto/rand"
	"io"
	"math/big"
)

// RandomInt returns a uniformly distributed integer in [min, max] read from r
// (crypto/rand.Reader when r is nil).
func RandomInt(r io.Reader, min, max int) (int, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return min + int(n.Int64()), nil
}

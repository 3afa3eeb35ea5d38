package dice

import (
	"crypto/rand"
	"math"
	"math/big"
	mrand "math/rand"
)

// cryptoSource implements Source using crypto/rand. It is safe for concurrent use.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a deterministic Source. Identical seeds yield identical sequences.
type seededSource struct {
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source for one battle.
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mrand.New(mrand.NewSource(seed))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return s.rng.Intn(n)
}

// NewSeed returns a random seed suitable for NewSeededSource.
func NewSeed() int64 {
	return int64(NewCryptoSource().Intn(math.MaxInt))
}

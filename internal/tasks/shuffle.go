package tasks

import "math/rand/v2"

// Shuffle permutes s in place with the Fisher–Yates algorithm and returns it.
//
// Every permutation is equally likely given a uniform source. Slices of length 0 or 1 are returned unchanged.
func Shuffle[T any](s []T, rng *rand.Rand) []T {
	if rng == nil {
		rng = newRand()
	}
	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
	return s
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

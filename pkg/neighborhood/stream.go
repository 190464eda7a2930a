package neighborhood

import "math/rand/v2"

// newStream returns the random stream of one start node. Seeds are derived
// with splitmix64 so neighboring task coordinates get unrelated streams.
func newStream(seed uint64, coords ...uint64) *rand.Rand {
	s := splitmix(seed)
	for _, c := range coords {
		s = splitmix(s ^ c)
	}
	return rand.New(rand.NewPCG(s, s^0xdeadbeef))
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

package testutil

import "math/rand/v2"

// FixedSession is the session label used by deterministic dispatch runs.
//
// Golden traces embed it, so changing it rewrites every golden file.
const FixedSession = "test-session-00000000-0000-0000-0000-000000000001"

// SeededRand returns a deterministic random source for azimuth draws.
func SeededRand(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

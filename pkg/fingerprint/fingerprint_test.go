package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemoTokenLength(t *testing.T) {
	g := NewDemo()
	for _, seed := range []string{"", "a", "mission-1:42:fresh", "long seed with spaces and unicode ✈"} {
		tok := g.Fingerprint(seed)
		require.Len(t, tok, TokenLength, "seed %q", seed)
	}
}

func TestDemoDeterministic(t *testing.T) {
	g := NewDemo()
	a := g.Fingerprint("seq:7:nonce:fixed")
	b := g.Fingerprint("seq:7:nonce:fixed")
	require.Equal(t, a, b)
}

func TestDemoDistinguishesSeeds(t *testing.T) {
	g := NewDemo()
	require.NotEqual(t, g.Fingerprint("seq:1"), g.Fingerprint("seq:2"))
}

func TestSeedCanonicalOrdering(t *testing.T) {
	a, err := Seed(map[string]any{"seq": 3, "event": "WAYPOINT_ACHIEVED"})
	require.NoError(t, err)
	b, err := Seed(map[string]any{"event": "WAYPOINT_ACHIEVED", "seq": 3})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

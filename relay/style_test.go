package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestStyleHint_Deterministic(t *testing.T) {
	a := StyleHint("agent-1", 3, 7)
	b := StyleHint("agent-1", 3, 7)
	assert.Equal(t, a, b)
}

func TestStyleHint_MatchesCatalogIndex(t *testing.T) {
	// 'a' is 97; (97+2+5) mod 8 == 0.
	assert.Equal(t, styleMoves[0], StyleHint("abc", 2, 5))
	// (97+3+5) mod 8 == 1.
	assert.Equal(t, styleMoves[1], StyleHint("abc", 3, 5))
}

func TestStyleHint_EmptyAgentID(t *testing.T) {
	assert.Equal(t, styleMoves[5%len(styleMoves)], StyleHint("", 2, 3))
}

func TestStyleHint_AlwaysFromCatalog(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`[a-zA-Z0-9-]{0,20}`).Draw(rt, "id")
		round := rapid.IntRange(0, 100).Draw(rt, "round")
		turns := rapid.IntRange(0, 1000).Draw(rt, "turns")

		hint := StyleHint(id, round, turns)
		found := false
		for _, m := range styleMoves {
			if m == hint {
				found = true
				break
			}
		}
		if !found {
			rt.Fatalf("hint %q not in catalog", hint)
		}
	})
}

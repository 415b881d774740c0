package catalog

import (
	"strings"
	"testing"
)

func TestSimilarityIdentical(t *testing.T) {
	html := "<body><h1>Revenue</h1><table>rows</table></body>"
	if got := Similarity(html, html); got != 1 {
		t.Errorf("identical similarity = %v, want 1", got)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	prev := strings.Repeat("a", 100)
	curr := strings.Repeat("b", 100)
	if got := Similarity(prev, curr); got > 0.01 {
		t.Errorf("disjoint similarity = %v, want ~0", got)
	}
}

func TestShouldReuseSmallDrift(t *testing.T) {
	// A 100-rune addition to a 10000-rune capture is ~1% drift.
	prev := strings.Repeat("x", 10000)
	curr := prev + strings.Repeat("y", 100)

	reuse, sim := ShouldReuse(prev, curr)
	if !reuse {
		t.Errorf("1%% drift must allow reuse (similarity %v)", sim)
	}
	if sim < 0.98 || sim >= 1 {
		t.Errorf("similarity = %v, want within [0.98, 1)", sim)
	}
}

func TestShouldReuseLargeDrift(t *testing.T) {
	prev := strings.Repeat("x", 1000)
	curr := prev[:500] + strings.Repeat("z", 500)

	if reuse, sim := ShouldReuse(prev, curr); reuse {
		t.Errorf("50%% drift must not allow reuse (similarity %v)", sim)
	}
}

func TestShouldReuseNoHistory(t *testing.T) {
	if reuse, _ := ShouldReuse("", "<body>fresh</body>"); reuse {
		t.Error("reports without history must be described")
	}
}

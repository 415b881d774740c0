package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"katari/internal/model"
)

// ReuseThreshold is the similarity at or above which a fresh capture is
// considered unchanged and the stored description can be reused.
const ReuseThreshold = 0.98

// Similarity measures how close two cleaned HTML captures are, as
// 1 - (edit distance / longer length), both counted in runes. Identical
// inputs score 1, disjoint inputs approach 0.
func Similarity(prev, curr string) float64 {
	if prev == curr {
		return 1
	}
	if prev == "" || curr == "" {
		return 0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prev, curr, true)
	dist := dmp.DiffLevenshtein(diffs)

	longer := utf8.RuneCountInString(prev)
	if n := utf8.RuneCountInString(curr); n > longer {
		longer = n
	}
	return 1 - float64(dist)/float64(longer)
}

// ShouldReuse reports whether the previous description still covers the new
// capture, along with the measured similarity.
func ShouldReuse(prev, curr string) (bool, float64) {
	if prev == "" {
		return false, 0
	}
	sim := Similarity(prev, curr)
	return sim >= ReuseThreshold, sim
}

// JoinPageHTML concatenates page HTML in capture order with the same layout
// PreviousCapture returns, so a fresh capture compares against history
// byte-for-byte.
func JoinPageHTML(pages []*model.ReportPage) string {
	var b strings.Builder
	for _, p := range pages {
		b.Write(p.HTML)
		b.WriteByte('\n')
	}
	return b.String()
}

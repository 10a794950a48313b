package fusion

import (
	"math"
	"testing"

	"github.com/lucidnotes/lucid-search/internal/highlight"
)

func candidates(ids ...string) []highlight.RankedCandidate {
	out := make([]highlight.RankedCandidate, len(ids))
	for i, id := range ids {
		out[i] = highlight.RankedCandidate{ID: id, NativeScore: 1.0 / float64(i+1), SourceRank: i + 1}
	}
	return out
}

func TestFuse_SumsContributions(t *testing.T) {
	semantic := candidates("A", "B", "C")
	keyword := candidates("B", "C", "D")

	results := Fuse(semantic, keyword, DefaultConfig())

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// B: 1/62 + 1/61 = 0.03252...
	// C: 1/63 + 1/62 = 0.03200...
	// A: 1/61      = 0.01639...
	// D: 1/63      = 0.01587...
	wantOrder := []string{"B", "C", "A", "D"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ID, want)
		}
	}

	wantB := 1.0/62 + 1.0/61
	if math.Abs(results[0].FusedScore-wantB) > 1e-12 {
		t.Errorf("B fused score = %v, want %v", results[0].FusedScore, wantB)
	}
}

func TestFuse_RanksRecorded(t *testing.T) {
	semantic := candidates("A", "B")
	keyword := candidates("B", "C")

	results := Fuse(semantic, keyword, DefaultConfig())

	for _, r := range results {
		switch r.ID {
		case "A":
			if r.SemanticRank != 1 || r.KeywordRank != 0 {
				t.Errorf("A: semantic=%d keyword=%d, want 1 and 0", r.SemanticRank, r.KeywordRank)
			}
		case "B":
			if r.SemanticRank != 2 || r.KeywordRank != 1 {
				t.Errorf("B: semantic=%d keyword=%d, want 2 and 1", r.SemanticRank, r.KeywordRank)
			}
		case "C":
			if r.SemanticRank != 0 || r.KeywordRank != 2 {
				t.Errorf("C: semantic=%d keyword=%d, want 0 and 2", r.SemanticRank, r.KeywordRank)
			}
		}
	}
}

func TestFuse_TieBreaksSemanticFirst(t *testing.T) {
	// Disjoint lists: rank r in either list contributes exactly 1/(k+r),
	// so A ties X, B ties Y. The stable sort must keep semantic entries
	// ahead of equally-scored keyword entries.
	semantic := candidates("A", "B")
	keyword := candidates("X", "Y")

	results := Fuse(semantic, keyword, DefaultConfig())

	wantOrder := []string{"A", "X", "B", "Y"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ID, want)
		}
	}
}

func TestFuse_EmptyLists(t *testing.T) {
	if got := Fuse(nil, nil, DefaultConfig()); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}

	semanticOnly := Fuse(candidates("A", "B"), nil, DefaultConfig())
	if len(semanticOnly) != 2 || semanticOnly[0].ID != "A" {
		t.Errorf("semantic-only fusion wrong: %+v", semanticOnly)
	}

	keywordOnly := Fuse(nil, candidates("A", "B"), DefaultConfig())
	if len(keywordOnly) != 2 || keywordOnly[0].ID != "A" {
		t.Errorf("keyword-only fusion wrong: %+v", keywordOnly)
	}
}

func TestFuse_ZeroKUsesDefault(t *testing.T) {
	results := Fuse(candidates("A"), nil, Config{})

	want := 1.0 / float64(DefaultK+1)
	if math.Abs(results[0].FusedScore-want) > 1e-12 {
		t.Errorf("fused score = %v, want %v", results[0].FusedScore, want)
	}
}

func TestTruncate(t *testing.T) {
	results := Fuse(candidates("A", "B", "C"), nil, DefaultConfig())

	if got := Truncate(results, 2); len(got) != 2 {
		t.Errorf("Truncate(2) = %d results, want 2", len(got))
	}
	if got := Truncate(results, 10); len(got) != 3 {
		t.Errorf("Truncate(10) = %d results, want 3", len(got))
	}
	if got := Truncate(results, 0); len(got) != 3 {
		t.Errorf("Truncate(0) = %d results, want 3", len(got))
	}
}

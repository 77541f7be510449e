package keywords

import "testing"

func TestNormalizeDedupesAndSorts(t *testing.T) {
	got := Normalize([]string{"Foo", " bar ", "foo", "", "BAR"})
	if len(got) != 2 || got[0] != "bar" || got[1] != "foo" {
		t.Fatalf("unexpected normalize result: %#v", got)
	}
}

func TestMatchFractionCountsDistinctHits(t *testing.T) {
	frac := MatchFraction("run the database migration script", []string{"database", "migration", "rollback"})
	if frac != 2.0/3.0 {
		t.Fatalf("expected 2/3, got %v", frac)
	}
}

func TestMatchFractionEmptyTermsIsZero(t *testing.T) {
	if got := MatchFraction("anything", nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestMatchedTermsReturnsOnlyHits(t *testing.T) {
	got := MatchedTerms("deploy to production", []string{"deploy", "staging"})
	if len(got) != 1 || got[0] != "deploy" {
		t.Fatalf("unexpected matched terms: %#v", got)
	}
}

package dictionary

import "testing"

func TestFuzzyLookup_WithinAbsoluteCap(t *testing.T) {
	d := New([]string{"Go"}, WithFuzzyMatching(true))
	// The query key "g" has len 1; ceil(1/5)=1, capped distance min(1,2)=1,
	// and Levenshtein("g", "go") = 1.
	if got, ok := d.lookup("g"); !ok || got != "Go" {
		t.Errorf("lookup(%q) = (%q, %v), want a fuzzy hit within distance 1", "g", got, ok)
	}
}

func TestFuzzyLookup_RejectsBeyondCap(t *testing.T) {
	d := New([]string{"Go"}, WithFuzzyMatching(true))
	if _, ok := d.lookup("xyz"); ok {
		t.Error("lookup() should reject a candidate far outside the distance budget")
	}
}

func TestFuzzyLookup_DisabledReturnsNoMatch(t *testing.T) {
	d := New([]string{"Kubernetes"})
	if _, ok := d.lookup("kubernetis"); ok {
		t.Error("lookup() should not fuzzy-match when fuzzy matching is disabled")
	}
}

func TestFuzzyLookup_RespectsCustomCaps(t *testing.T) {
	d := New([]string{"Kubernetes"}, WithFuzzyMatching(true), WithMaxAbsoluteDistance(0))
	if _, ok := d.lookup("kubernetis"); ok {
		t.Error("lookup() should reject any edit distance when max absolute distance is 0")
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{10, 5, 2},
		{9, 5, 2},
		{1, 5, 1},
		{0, 5, 0},
		{5, 0, 5},
	}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

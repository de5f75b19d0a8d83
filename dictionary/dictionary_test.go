package dictionary

import "testing"

func TestCorrect_ExactPhoneticMatch(t *testing.T) {
	d := New([]string{"Kubernetes"})
	got := d.Correct("please restart kubernetes now")
	want := "please restart Kubernetes now"
	if got != want {
		t.Errorf("Correct() = %q, want %q", got, want)
	}
}

func TestCorrect_AccentInsensitive(t *testing.T) {
	d := New([]string{"café"})
	got := d.Correct("meet me at the cafe")
	if got != "meet me at the café" {
		t.Errorf("Correct() = %q", got)
	}
}

func TestCorrect_MultiWordTermPreferredOverSingleWord(t *testing.T) {
	d := New([]string{"New York", "York"})
	got := d.Correct("flying to new york tomorrow")
	if got != "flying to New York tomorrow" {
		t.Errorf("Correct() = %q, want the longer multi-word match to win", got)
	}
}

func TestCorrect_PreservesDelimitersAndCase(t *testing.T) {
	d := New([]string{"GitHub"})
	got := d.Correct("check github, please!")
	if got != "check GitHub, please!" {
		t.Errorf("Correct() = %q", got)
	}
}

func TestCorrect_EmptyDictionaryIsIdentity(t *testing.T) {
	d := New(nil)
	in := "nothing should change here"
	if got := d.Correct(in); got != in {
		t.Errorf("Correct() = %q, want unchanged input", got)
	}
}

func TestCorrect_Idempotent(t *testing.T) {
	d := New([]string{"Kubernetes", "Docker"})
	in := "kubernetes and docker work well together"
	once := d.Correct(in)
	twice := d.Correct(once)
	if once != twice {
		t.Errorf("Correct() not idempotent: %q != %q", once, twice)
	}
}

func TestCorrect_FuzzyMatchWithinBudget(t *testing.T) {
	d := New([]string{"Kubernetes"}, WithFuzzyMatching(true))
	got := d.Correct("deploying to kubernetis today")
	if got != "deploying to Kubernetes today" {
		t.Errorf("Correct() = %q, want fuzzy match to fire within the distance budget", got)
	}
}

func TestCorrect_FuzzyDisabledByDefault(t *testing.T) {
	d := New([]string{"Kubernetes"})
	got := d.Correct("deploying to kubernetis today")
	if got != "deploying to kubernetis today" {
		t.Errorf("Correct() = %q, want no fuzzy correction when disabled", got)
	}
}

func TestCorrect_LastRegisteredWinsOnCollision(t *testing.T) {
	// "naïve" and "naive" share the phonetic key "naive" once the combining
	// mark is stripped, so this is a genuine collision.
	d := New([]string{"naïve", "naive"})
	got := d.Correct("a naive approach")
	if got != "a naive approach" {
		t.Errorf("Correct() = %q, want the last-registered spelling on collision", got)
	}
}

func TestPhoneticKey_StripsAccentsAndCase(t *testing.T) {
	if got := phoneticKey("Café"); got != "cafe" {
		t.Errorf("phoneticKey(%q) = %q", "Café", got)
	}
	if got := phoneticKey("  Hello, World!  "); got != "helloworld" {
		t.Errorf("phoneticKey unexpected: %q", got)
	}
}

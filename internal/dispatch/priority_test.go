package dispatch

import "testing"

func TestExtractPriorityPrefersProjectPriorityField(t *testing.T) {
	p := ExtractPriority("high", []string{"priority:low"})
	if p != PriorityHigh {
		t.Fatalf("expected high, got %s", p)
	}
}

func TestExtractPriorityFallsBackToLabels(t *testing.T) {
	cases := []struct {
		label string
		want  Priority
	}{
		{"priority:critical", PriorityCritical},
		{"high", PriorityHigh},
		{"p2", PriorityMedium},
		{"🟢", PriorityLow},
	}
	for _, tc := range cases {
		got := ExtractPriority("", []string{tc.label})
		if got != tc.want {
			t.Errorf("label %q: want %s, got %s", tc.label, tc.want, got)
		}
	}
}

func TestExtractPriorityDefaultsToNone(t *testing.T) {
	p := ExtractPriority("", []string{"bug", "needs-triage"})
	if p != PriorityNone {
		t.Fatalf("expected none, got %s", p)
	}
}

func TestPriorityScoreOrdering(t *testing.T) {
	if !(PriorityCritical.Score() < PriorityHigh.Score() &&
		PriorityHigh.Score() < PriorityMedium.Score() &&
		PriorityMedium.Score() < PriorityLow.Score() &&
		PriorityLow.Score() < PriorityNone.Score()) {
		t.Fatal("expected strictly increasing scores critical < high < medium < low < none")
	}
}

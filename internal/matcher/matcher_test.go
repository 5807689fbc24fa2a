package matcher

import "testing"

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		reference string
		expect    int
	}{
		{name: "exact match", candidate: "yes", reference: "yes", expect: 100},
		{name: "case insensitive", candidate: "InshaAllah", reference: "inshaallah", expect: 100},
		{name: "surrounding punctuation", candidate: "  yes!!! ", reference: "yes", expect: 100},
		{name: "token order", candidate: "review dibo na ami", reference: "ami review dibo na", expect: 100},
		{name: "subset of tokens", candidate: "facebook", reference: "Facebook e post kore", expect: 100},
		{name: "bengali text", candidate: "৫০ টাকা", reference: "৫০ টাকা", expect: 100},
		{name: "close spelling", candidate: "ha", reference: "hea", expect: 80},
		{name: "nothing in common", candidate: "zzzz", reference: "unlimited", expect: 0},
		{name: "empty candidate", candidate: "", reference: "yes", expect: 0},
		{name: "only punctuation", candidate: "?!", reference: "yes", expect: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Score(tt.candidate, tt.reference); got != tt.expect {
				t.Fatalf("Score(%q, %q): expected %d, got %d", tt.candidate, tt.reference, tt.expect, got)
			}
		})
	}
}

func TestScoreIsSymmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"ami nijer phn theke", "worker er phone"},
		{"5 tar moto", "joto golo limit thakbe"},
		{"marketing kore", "Facebook e post kore"},
	}

	for _, p := range pairs {
		if a, b := Score(p[0], p[1]), Score(p[1], p[0]); a != b {
			t.Fatalf("expected symmetric score for %q/%q, got %d and %d", p[0], p[1], a, b)
		}
	}
}

func TestScorePartialOverlap(t *testing.T) {
	t.Parallel()

	got := Score("marketing kori", "marketing kore")
	if got <= 50 || got >= 100 {
		t.Fatalf("expected partial score between 50 and 100, got %d", got)
	}
}

func TestIsAcceptedExactAnswerNeverRejected(t *testing.T) {
	t.Parallel()

	accepted := []string{"hea", "ji", "Yes", "সম্পূর্ণ ভিডিও দেখছি"}
	for _, answer := range accepted {
		if !IsAccepted(answer, accepted, 100) {
			t.Fatalf("expected exact answer %q to be accepted at threshold 100", answer)
		}
	}

	if !IsAccepted("YES", accepted, 100) {
		t.Fatalf("expected upper-case exact answer to be accepted")
	}
}

func TestIsAcceptedThreshold(t *testing.T) {
	t.Parallel()

	accepted := []string{"hea", "yes"}

	if !IsAccepted("ha", accepted, 70) {
		t.Fatalf("expected %q to pass threshold 70", "ha")
	}

	if IsAccepted("ha", accepted, 90) {
		t.Fatalf("expected %q to fail threshold 90", "ha")
	}

	if IsAccepted("zzzz qqqq", accepted, 1) {
		t.Fatalf("expected nonsense to be rejected")
	}

	if IsAccepted("yes", nil, 0) != true {
		t.Fatalf("expected threshold 0 to accept anything")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  Hello,   WORLD!! "); got != "hello world" {
		t.Fatalf("unexpected normalized text: %q", got)
	}

	if got := Normalize("দেখছি।"); got != "দেখছি" {
		t.Fatalf("expected bengali marks to survive, got %q", got)
	}
}

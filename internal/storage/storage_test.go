package storage

import (
	"context"
	"errors"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLStore(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("unexpected error opening sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreCandidateLifecycle(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.GetCandidate(ctx, 42); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for absent record, got %v", err)
			}

			rec := DefaultRecord()
			rec.State = StateInterview
			rec.QuestionIndex = 1
			rec.Answers = []QA{{Question: "q1", Answer: "yes"}}

			if err := store.SaveCandidate(ctx, 42, rec); err != nil {
				t.Fatalf("unexpected error saving: %v", err)
			}

			got, err := store.GetCandidate(ctx, 42)
			if err != nil {
				t.Fatalf("unexpected error loading: %v", err)
			}
			if got.State != StateInterview || got.QuestionIndex != 1 || len(got.Answers) != 1 {
				t.Fatalf("unexpected record: %+v", got)
			}
			if got.Answers[0].Answer != "yes" {
				t.Fatalf("unexpected answer: %+v", got.Answers[0])
			}

			rec.State = StatePassed
			rec.Passed = true
			rec.Answers = nil
			if err := store.SaveCandidate(ctx, 42, rec); err != nil {
				t.Fatalf("unexpected error overwriting: %v", err)
			}
			got, _ = store.GetCandidate(ctx, 42)
			if !got.Passed || len(got.Answers) != 0 {
				t.Fatalf("expected full overwrite, got %+v", got)
			}

			if err := store.DeleteCandidate(ctx, 42); err != nil {
				t.Fatalf("unexpected error deleting: %v", err)
			}
			if _, err := store.GetCandidate(ctx, 42); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreSettingsMerge(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.GetSettings(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for empty settings, got %v", err)
			}

			if err := store.MergeSettings(ctx, map[string]string{"video_link": "a", "admin_display_name": "b"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := store.MergeSettings(ctx, map[string]string{"video_link": "c"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := store.GetSettings(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got["video_link"] != "c" || got["admin_display_name"] != "b" {
				t.Fatalf("expected partial merge, got %v", got)
			}
		})
	}
}

func TestStoreCounters(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := store.IncrementCounter(ctx, "total_passed"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if err := store.IncrementCounter(ctx, "total_interviews_started"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := store.Counters(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got["total_passed"] != 3 || got["total_interviews_started"] != 1 {
				t.Fatalf("unexpected counters: %v", got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	answers := func(n int) []QA {
		out := make([]QA, n)
		for i := range out {
			out[i] = QA{Question: "q", Answer: "a"}
		}
		return out
	}

	tests := []struct {
		name       string
		rec        CandidateRecord
		bankSize   int
		wantState  State
		wantIndex  int
		wantAnswer int
	}{
		{
			name:       "consistent record untouched",
			rec:        CandidateRecord{State: StateInterview, QuestionIndex: 3, Answers: answers(3)},
			bankSize:   10,
			wantState:  StateInterview,
			wantIndex:  3,
			wantAnswer: 3,
		},
		{
			name:       "index beyond shrunk bank is clamped",
			rec:        CandidateRecord{State: StateInterview, QuestionIndex: 11, Answers: answers(11)},
			bankSize:   10,
			wantState:  StateInterview,
			wantIndex:  9,
			wantAnswer: 9,
		},
		{
			name:       "negative index",
			rec:        CandidateRecord{State: StateInterview, QuestionIndex: -4},
			bankSize:   10,
			wantState:  StateInterview,
			wantIndex:  0,
			wantAnswer: 0,
		},
		{
			name:       "missing answers lower the index",
			rec:        CandidateRecord{State: StateInterview, QuestionIndex: 5, Answers: answers(2)},
			bankSize:   10,
			wantState:  StateInterview,
			wantIndex:  2,
			wantAnswer: 2,
		},
		{
			name:       "unknown state becomes idle",
			rec:        CandidateRecord{State: "SOMETHING"},
			bankSize:   10,
			wantState:  StateIdle,
			wantIndex:  0,
			wantAnswer: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.rec.Normalize(tt.bankSize)
			if got.State != tt.wantState || got.QuestionIndex != tt.wantIndex || len(got.Answers) != tt.wantAnswer {
				t.Fatalf("unexpected normalized record: state=%s index=%d answers=%d",
					got.State, got.QuestionIndex, len(got.Answers))
			}
		})
	}
}

func TestNormalizeDerivesPassed(t *testing.T) {
	t.Parallel()

	rec := CandidateRecord{State: StatePassed}
	if !rec.Normalize(10).Passed {
		t.Fatalf("expected passed to follow PASSED state")
	}

	rec = CandidateRecord{State: StateTerms, Passed: true}
	if rec.Normalize(10).Passed {
		t.Fatalf("expected passed to be false outside PASSED state")
	}
}

func TestArchive(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())

	if _, err := archive.LoadSlip(7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	slip := SlipRecord{CandidateID: 7, DisplayName: "Rahim", Answers: []QA{{Question: "q", Answer: "a"}}, Text: "slip"}
	if err := archive.SaveSlip(slip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := archive.LoadSlip(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DisplayName != "Rahim" || len(got.Answers) != 1 {
		t.Fatalf("unexpected slip: %+v", got)
	}

	ids, err := archive.ListSlips()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
)

func TestOpenSeedsEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	loader, err := Open(ctx, filepath.Join(t.TempDir(), "trivia.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer loader.Close()

	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != len(memory.DefaultBank()) {
		t.Fatalf("expected %d seeded questions, got %d", len(memory.DefaultBank()), len(questions))
	}
	for _, q := range questions {
		if len(q.Options) < 2 || q.Correct < 1 || q.Correct > len(q.Options) {
			t.Fatalf("malformed question %+v", q)
		}
	}
}

func TestRandomQuestionsDistinct(t *testing.T) {
	ctx := context.Background()
	loader, err := Open(ctx, filepath.Join(t.TempDir(), "trivia.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer loader.Close()

	questions, err := loader.RandomQuestions(ctx, 3)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	seen := map[string]bool{}
	for _, q := range questions {
		if seen[q.Text] {
			t.Fatalf("duplicate question %q", q.Text)
		}
		seen[q.Text] = true
	}

	if _, err := loader.RandomQuestions(ctx, 100); err != domain.ErrBankExhausted {
		t.Fatalf("expected ErrBankExhausted, got %v", err)
	}
}

func TestInsertSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trivia.db")
	loader, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer loader.Close()

	extra := []domain.Question{
		{Text: "What is the chemical symbol for gold?", Options: []string{"Au", "Ag", "Gd", "Go"}, Correct: 1},
	}
	if err := loader.Insert(ctx, extra); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := loader.Insert(ctx, extra); err != nil {
		t.Fatalf("re-insert: %v", err)
	}

	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != len(memory.DefaultBank())+1 {
		t.Fatalf("expected %d questions, got %d", len(memory.DefaultBank())+1, len(questions))
	}
}

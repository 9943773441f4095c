package memory

import (
	"context"
	"testing"
	"time"

	"trivia-session-service/internal/domain"
)

func TestQuestionBankCachesLoader(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticLoader(DefaultBank())}
	bank := NewQuestionBank(loader, time.Minute)

	if _, err := bank.RandomQuestions(context.Background(), 3); err != nil {
		t.Fatalf("random questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.RandomQuestions(context.Background(), 3); err != nil {
		t.Fatalf("random questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankSamplesDistinct(t *testing.T) {
	bank := NewQuestionBank(NewStaticLoader(DefaultBank()), time.Minute)

	for i := 0; i < 20; i++ {
		questions, err := bank.RandomQuestions(context.Background(), 4)
		if err != nil {
			t.Fatalf("random questions: %v", err)
		}
		if len(questions) != 4 {
			t.Fatalf("expected 4 questions, got %d", len(questions))
		}
		seen := map[string]bool{}
		for _, q := range questions {
			if seen[q.Text] {
				t.Fatalf("duplicate question %q in one draw", q.Text)
			}
			seen[q.Text] = true
		}
	}
}

func TestQuestionBankRejectsOversizedDraw(t *testing.T) {
	bank := NewQuestionBank(NewStaticLoader(DefaultBank()), time.Minute)

	if _, err := bank.RandomQuestions(context.Background(), len(DefaultBank())+1); err != domain.ErrBankExhausted {
		t.Fatalf("expected ErrBankExhausted, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadQuestions(ctx)
}

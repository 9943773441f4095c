package redis

import (
	"context"
	"testing"
	"time"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{BankLoader: memory.NewStaticLoader(memory.DefaultBank())}
	bank := NewQuestionBank(client, loader, time.Minute)

	questions, err := bank.RandomQuestions(context.Background(), 3)
	if err != nil {
		t.Fatalf("random questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("trivia:bank") {
		t.Fatalf("expected cached bank hash in redis")
	}

	// Second draw should hit the redis cache.
	if _, err := bank.RandomQuestions(context.Background(), 3); err != nil {
		t.Fatalf("random questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuestionBankRoundTripsQuestions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bank := NewQuestionBank(client, memory.NewStaticLoader(memory.DefaultBank()), time.Minute)

	// Fill the cache, then draw again from it and check shape survives.
	if _, err := bank.RandomQuestions(context.Background(), 1); err != nil {
		t.Fatalf("fill: %v", err)
	}
	questions, err := bank.RandomQuestions(context.Background(), len(memory.DefaultBank()))
	if err != nil {
		t.Fatalf("draw all: %v", err)
	}
	for _, q := range questions {
		if q.Text == "" || len(q.Options) < 2 || q.Correct < 1 || q.Correct > len(q.Options) {
			t.Fatalf("malformed cached question %+v", q)
		}
	}
}

func TestQuestionBankOversizedDraw(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bank := NewQuestionBank(client, memory.NewStaticLoader(memory.DefaultBank()), time.Minute)

	if _, err := bank.RandomQuestions(context.Background(), 100); err != domain.ErrBankExhausted {
		t.Fatalf("expected ErrBankExhausted, got %v", err)
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadQuestions(ctx)
}

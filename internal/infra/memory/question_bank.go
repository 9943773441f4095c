package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches the full question bank from a backing store
// (Postgres, sqlite, a static fixture).
type BankLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the loaded bank with TTL to avoid repeated DB hits
// and serves random subsets of it.
type QuestionBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	rndMu     sync.Mutex
	bank      []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomQuestions returns n distinct questions sampled from the cached bank.
func (b *QuestionBank) RandomQuestions(ctx context.Context, n int) ([]domain.Question, error) {
	bank, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(bank) < n {
		return nil, domain.ErrBankExhausted
	}

	// Partial Fisher-Yates over a copy: the first n slots end up a uniform
	// sample without replacement.
	picked := make([]domain.Question, len(bank))
	copy(picked, bank)
	b.rndMu.Lock()
	for i := 0; i < n; i++ {
		j := i + b.rnd.Intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	b.rndMu.Unlock()
	return picked[:n], nil
}

func (b *QuestionBank) load(ctx context.Context) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if b.bank != nil && b.expiresAt.After(now) {
		bank := b.bank
		b.mu.RUnlock()
		return bank, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if b.bank != nil && b.expiresAt.After(now) {
			bank := b.bank
			b.mu.RUnlock()
			return bank, nil
		}
		b.mu.RUnlock()

		bank, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.bank = bank
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticLoader is a loader backed by a fixed slice (useful for tests/demos).
type StaticLoader struct {
	questions []domain.Question
}

func NewStaticLoader(questions []domain.Question) *StaticLoader {
	return &StaticLoader{questions: questions}
}

func (l *StaticLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return l.questions, nil
}

// DefaultBank is the bundled starter set so a fresh deploy is playable
// before any real bank has been seeded.
func DefaultBank() []domain.Question {
	return []domain.Question{
		{
			Text:    "What is the capital of France?",
			Options: []string{"Paris", "London", "Berlin", "Madrid"},
			Correct: 1,
		},
		{
			Text:    "Who painted the Mona Lisa?",
			Options: []string{"Van Gogh", "Leonardo da Vinci", "Picasso", "Michelangelo"},
			Correct: 2,
		},
		{
			Text:    "What is the largest ocean on Earth?",
			Options: []string{"Atlantic", "Indian", "Pacific", "Arctic"},
			Correct: 3,
		},
		{
			Text:    "In which year did the French Revolution begin?",
			Options: []string{"1759", "1769", "1779", "1789"},
			Correct: 4,
		},
		{
			Text:    "Which is the largest country in the world by area?",
			Options: []string{"Russia", "Canada", "China", "United States"},
			Correct: 1,
		},
	}
}

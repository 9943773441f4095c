package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionBank caches the question bank in a Redis hash and falls back to a
// loader on cache miss. Questions are stored as:
//
//	HSET trivia:bank {index} {json}
//
// Sampling happens locally after the bank is read back.
type QuestionBank struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const bankKey = "trivia:bank"

// RandomQuestions returns n distinct questions sampled from the cached bank.
func (b *QuestionBank) RandomQuestions(ctx context.Context, n int) ([]domain.Question, error) {
	bank, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(bank) < n {
		return nil, domain.ErrBankExhausted
	}

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
	fields, err := b.client.HGetAll(ctx, bankKey).Result()
	if err == nil && len(fields) > 0 {
		return bankFromCache(fields), nil
	}

	result, err, _ := b.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := b.client.HGetAll(ctx, bankKey).Result()
		if err == nil && len(fields) > 0 {
			return bankFromCache(fields), nil
		}

		bank, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		pipe := b.client.Pipeline()
		for i, q := range bank {
			data, err := json.Marshal(q)
			if err != nil {
				continue
			}
			pipe.HSet(ctx, bankKey, strconv.Itoa(i), data)
		}
		if b.ttl > 0 {
			pipe.Expire(ctx, bankKey, b.ttlWithJitter())
		}
		_, _ = pipe.Exec(ctx)

		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func bankFromCache(fields map[string]string) []domain.Question {
	bank := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			continue
		}
		bank = append(bank, q)
	}
	return bank
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

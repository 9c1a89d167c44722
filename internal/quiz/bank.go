package quiz

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ErrNoQuestions is returned when the bank has nothing of the requested difficulty
var ErrNoQuestions = errors.New("quiz: no questions available")

// bankFile is the HCL layout of a question bank file
type bankFile struct {
	Questions []questionBlock `hcl:"question,block"`
}

type questionBlock struct {
	ID         string   `hcl:"id,label"`
	Text       string   `hcl:"text"`
	Options    []string `hcl:"options,optional"`
	Answer     string   `hcl:"answer"`
	Difficulty string   `hcl:"difficulty"`
	Topic      string   `hcl:"topic,optional"`
}

// Bank is an in-memory Source. It is safe for concurrent use.
type Bank struct {
	mu        sync.Mutex
	rng       *rand.Rand
	questions []Question
	byID      map[string]Question
}

// NewBank builds a bank from questions. IDs must be unique and every question
// needs text and an answer.
func NewBank(rng *rand.Rand, questions []Question) (*Bank, error) {
	if rng == nil {
		return nil, errors.New("quiz: rng is required")
	}
	b := &Bank{
		rng:  rng,
		byID: make(map[string]Question, len(questions)),
	}
	for _, q := range questions {
		if q.ID == "" {
			return nil, errors.New("quiz: question without id")
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("quiz: duplicate question id %q", q.ID)
		}
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.Answer) == "" {
			return nil, fmt.Errorf("quiz: question %q needs text and answer", q.ID)
		}
		b.byID[q.ID] = q
		b.questions = append(b.questions, q)
	}
	return b, nil
}

// LoadBank reads a question bank from an HCL file
func LoadBank(filename string, rng *rand.Rand) (*Bank, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}
	return ParseBank(src, filename, rng)
}

// ParseBank parses HCL question bank source. filename is used in diagnostics.
func ParseBank(src []byte, filename string, rng *rand.Rand) (*Bank, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg bankFile
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	questions := make([]Question, 0, len(cfg.Questions))
	for _, block := range cfg.Questions {
		difficulty, err := ParseDifficulty(block.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", block.ID, err)
		}
		questions = append(questions, Question{
			ID:         block.ID,
			Text:       block.Text,
			Options:    block.Options,
			Answer:     block.Answer,
			Difficulty: difficulty,
			Topic:      block.Topic,
		})
	}
	return NewBank(rng, questions)
}

// Len returns the number of questions in the bank
func (b *Bank) Len() int {
	return len(b.questions)
}

// Counts returns the number of questions per difficulty
func (b *Bank) Counts() map[Difficulty]int {
	counts := make(map[Difficulty]int)
	for _, q := range b.questions {
		counts[q.Difficulty]++
	}
	return counts
}

// FetchQuestions samples Count questions of the requested difficulty. Topic
// narrows the pool when it matches anything; otherwise every topic is used.
// Questions repeat only when the pool is smaller than Count.
func (b *Bank) FetchQuestions(ctx context.Context, q Query) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Count <= 0 {
		return nil, nil
	}

	var pool, topical []Question
	for _, question := range b.questions {
		if question.Difficulty != q.Difficulty {
			continue
		}
		pool = append(pool, question)
		if q.Topic != "" && strings.EqualFold(question.Topic, q.Topic) {
			topical = append(topical, question)
		}
	}
	if len(topical) > 0 {
		pool = topical
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: difficulty %s", ErrNoQuestions, q.Difficulty)
	}

	b.mu.Lock()
	b.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	b.mu.Unlock()

	out := make([]Question, q.Count)
	for i := range out {
		out[i] = pool[i%len(pool)]
	}
	return out, nil
}

// CheckAnswer compares answer with the bank's copy of the question when it
// has one, so a caller cannot supply its own answer key.
func (b *Bank) CheckAnswer(ctx context.Context, q Question, answer string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if stored, ok := b.byID[q.ID]; ok {
		q = stored
	}
	return MatchAnswer(q.Answer, answer), nil
}

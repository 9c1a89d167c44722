// Package quiz holds the trivia questions that gate special cards and the
// source the engine asks for them.
package quiz

import (
	"context"
	"fmt"
	"strings"
)

// Difficulty is the tier of a question and of the special card it guards
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
	Extreme
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Extreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// ParseDifficulty parses a difficulty name, case-insensitively
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	case "extreme":
		return Extreme, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q", s)
	}
}

// MarshalText encodes the difficulty by name
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a difficulty name
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Question is a single trivia question. Answer must never leave the server.
type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options,omitempty"`
	Answer     string     `json:"answer"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic,omitempty"`
}

// Query selects questions from a Source. An empty Topic matches any topic.
type Query struct {
	Topic      string
	Difficulty Difficulty
	Count      int
}

// Source is the question bank as the engine sees it.
type Source interface {
	// FetchQuestions returns Count questions of the requested difficulty.
	FetchQuestions(ctx context.Context, q Query) ([]Question, error)
	// CheckAnswer reports whether answer is correct for q.
	CheckAnswer(ctx context.Context, q Question, answer string) (bool, error)
}

// MatchAnswer is the reference answer check: case-insensitive exact match
// after trimming surrounding whitespace.
func MatchAnswer(expected, given string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(given))
}

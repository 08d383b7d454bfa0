package prompt

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrNoPrompts = errors.New("no prompts available")

// MinLength is the shortest prompt, in runes, for which every finishing
// position still earns strictly more than the next one.
const MinLength = 13

type Prompt struct {
	Text       string `yaml:"text"`
	Source     string `yaml:"source"`
	Difficulty string `yaml:"difficulty"`
}

type Provider interface {
	RandomPrompt(ctx context.Context, difficulty string) (Prompt, error)
}

var defaults = []Prompt{
	{Text: "The quick brown fox jumps over the lazy dog while the keyboard hums along.", Source: "pangram", Difficulty: "easy"},
	{Text: "Practice does not make perfect; perfect practice makes perfect.", Source: "proverb", Difficulty: "easy"},
	{Text: "Every keystroke is a small promise that the next one will come a little faster.", Source: "keyrace", Difficulty: "medium"},
	{Text: "Sphinx of black quartz, judge my vow, and count the vexing zephyrs as they pass.", Source: "pangram", Difficulty: "medium"},
	{Text: "Concurrency is not parallelism: it is the composition of independently executing processes.", Source: "go proverb", Difficulty: "hard"},
	{Text: "Don't communicate by sharing memory; share memory by communicating, then race to the finish.", Source: "go proverb", Difficulty: "hard"},
}

func Defaults() []Prompt {
	return append([]Prompt(nil), defaults...)
}

// Fallback is used when a provider cannot serve a prompt in time.
func Fallback() Prompt { return defaults[0] }

type catalogue struct {
	Prompts []Prompt `yaml:"prompts"`
}

// LoadFile reads a YAML catalogue:
//
//	prompts:
//	  - text: "..."
//	    difficulty: easy
func LoadFile(path string) ([]Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	out := make([]Prompt, 0, len(c.Prompts))
	for i, p := range c.Prompts {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			continue
		}
		if n := utf8.RuneCountInString(p.Text); n < MinLength {
			return nil, fmt.Errorf("%s: prompt %d is %d characters, need at least %d", path, i+1, n, MinLength)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPrompts)
	}
	return out, nil
}

// Static serves prompts from memory. Safe for concurrent use.
type Static struct {
	mu      sync.Mutex
	prompts []Prompt
	rng     *rand.Rand
}

func NewStatic(prompts []Prompt, seed int64) *Static {
	return &Static{prompts: prompts, rng: rand.New(rand.NewSource(seed))}
}

func (s *Static) RandomPrompt(ctx context.Context, difficulty string) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.prompts
	if difficulty != "" {
		candidates = nil
		for _, p := range s.prompts {
			if strings.EqualFold(p.Difficulty, difficulty) {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		return Prompt{}, ErrNoPrompts
	}
	return candidates[s.rng.Intn(len(candidates))], nil
}

// Chain asks each provider in turn and returns the first prompt served.
type Chain struct {
	providers []Provider
	log       *zap.Logger
}

func NewChain(log *zap.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, log: log}
}

func (c *Chain) RandomPrompt(ctx context.Context, difficulty string) (Prompt, error) {
	var errs []error
	for _, p := range c.providers {
		pr, err := p.RandomPrompt(ctx, difficulty)
		if err == nil && pr.Text != "" {
			return pr, nil
		}
		if err != nil {
			c.log.Debug("prompt provider failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return Prompt{}, ErrNoPrompts
	}
	return Prompt{}, errors.Join(errs...)
}

package prompt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatic_FiltersByDifficulty(t *testing.T) {
	s := NewStatic(Defaults(), 1)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		p, err := s.RandomPrompt(ctx, "hard")
		require.NoError(t, err)
		assert.Equal(t, "hard", p.Difficulty)
	}

	_, err := s.RandomPrompt(ctx, "impossible")
	assert.ErrorIs(t, err, ErrNoPrompts)

	p, err := s.RandomPrompt(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Text)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := `prompts:
  - text: "  alpha beta gamma  "
    difficulty: easy
    source: test
  - text: ""
  - text: delta epsilon
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	prompts, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "alpha beta gamma", prompts[0].Text)
	assert.Equal(t, "easy", prompts[0].Difficulty)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("prompts: []\n"), 0o600))
	_, err = LoadFile(empty)
	assert.ErrorIs(t, err, ErrNoPrompts)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_RejectsShortPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `prompts:
  - text: delta epsilon
  - text: "  too short  "
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt 2")
}

func TestDefaults_MeetMinimumLength(t *testing.T) {
	for _, p := range Defaults() {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(p.Text), MinLength, p.Text)
	}
}

type failingProvider struct{ err error }

func (f failingProvider) RandomPrompt(context.Context, string) (Prompt, error) {
	return Prompt{}, f.err
}

func TestChain_FallsThrough(t *testing.T) {
	boom := errors.New("db down")
	c := NewChain(zap.NewNop(), failingProvider{err: boom}, NewStatic(Defaults(), 2))

	p, err := c.RandomPrompt(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Text)

	c = NewChain(zap.NewNop(), failingProvider{err: boom})
	_, err = c.RandomPrompt(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}

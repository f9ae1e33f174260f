package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewPromptStore_Dir(t *testing.T) {
	store, dir := newTestPromptStore(t)
	assert.Equal(t, dir, store.Dir())

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}
	store, err = NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".finlit", "prompts"), store.Dir())
}

func TestNewPromptStore_NoIOUntilLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	_, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_SeedsFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load(driven.PromptGreeting)
	require.NoError(t, err)

	for _, f := range []string{"grounded_rules.txt", "greeting.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "cannot be edited here")
	assert.NoFileExists(t, filepath.Join(dir, "response_format.txt"))
}

func TestPromptStore_DefaultsCoverAllPrompts(t *testing.T) {
	store, _ := newTestPromptStore(t)

	for _, name := range promptNames {
		def, ok := DefaultPrompt(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, def)

		prompt, err := store.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, def, prompt)
	}
}

func TestDefaultPrompt_Texts(t *testing.T) {
	rules, ok := DefaultPrompt(driven.PromptGroundedRules)
	require.True(t, ok)
	assert.Contains(t, rules, "ONLY use facts from the VERIFIED FACTS section")
	assert.False(t, strings.HasSuffix(rules, "\n"))

	greeting, _ := DefaultPrompt(driven.PromptGreeting)
	assert.Contains(t, greeting, "Tax filing (LHDN)")

	_, ok = DefaultPrompt("README")
	assert.False(t, ok)
	_, ok = DefaultPrompt("response_format")
	assert.False(t, ok)
}

func TestPromptStore_UserEdits(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    func() string
	}{
		{"custom text is trimmed", "\n  Keep answers under 100 words.  \n\n", func() string { return "Keep answers under 100 words." }},
		{"empty file uses built-in", "   \n", func() string { d, _ := DefaultPrompt(driven.PromptGroundedRules); return d }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestPromptStore(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "grounded_rules.txt"), []byte(tt.content), 0o600))

			prompt, err := store.Load(driven.PromptGroundedRules)
			require.NoError(t, err)
			assert.Equal(t, tt.want(), prompt)
		})
	}
}

func TestPromptStore_SeedKeepsExistingFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)
	path := filepath.Join(dir, "greeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("Selamat datang!"), 0o600))

	prompt, err := store.Load(driven.PromptGreeting)
	require.NoError(t, err)
	assert.Equal(t, "Selamat datang!", prompt)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Selamat datang!", string(data))
}

func TestPromptStore_DeletedFileFallsBack(t *testing.T) {
	store, dir := newTestPromptStore(t)
	_, err := store.Load(driven.PromptGreeting)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "greeting.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptGreeting)
	require.NoError(t, err)
	def, _ := DefaultPrompt(driven.PromptGreeting)
	assert.Equal(t, def, prompt)
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	store, dir := newTestPromptStore(t)
	path := filepath.Join(dir, "grounded_rules.txt")

	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))
	first, err := store.Load(driven.PromptGroundedRules)
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))
	cached, err := store.Load(driven.PromptGroundedRules)
	require.NoError(t, err)
	assert.Equal(t, "first", cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptGroundedRules)
	require.NoError(t, err)
	assert.Equal(t, "second", fresh)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, _ := newTestPromptStore(t)

	_, err := store.Load("system_prompt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromptStore_UnwritableDirFallsBack(t *testing.T) {
	store, err := NewPromptStore("/dev/null/prompts")
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptGreeting)
	require.NoError(t, err)
	assert.Contains(t, prompt, "How can I help you today?")

	_, err = store.Load("unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, _ := newTestPromptStore(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range promptNames {
				_, err := store.Load(name)
				assert.NoError(t, err)
			}
			store.Reload()
		}()
	}
	wg.Wait()
}

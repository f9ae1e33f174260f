package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

func testHits() []domain.Hit {
	return []domain.Hit{
		{
			Text:     "Set aside three to six months of expenses in an emergency fund.",
			Metadata: map[string]any{domain.MetaTitle: "Saving Basics", domain.MetaSource: "saving.pdf"},
			Score:    0.82,
		},
		{
			Text:     "Pay yourself first by automating transfers on payday.",
			Metadata: map[string]any{domain.MetaSourceFile: "habits.pdf"},
			Score:    0.61,
		},
	}
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Long(t *testing.T) {
	assert.Contains(t, searchCmd.Long, "maximal marginal relevance")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestSearchCmd_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"k", "k", "0"},
		{"fetch-k", "", "0"},
		{"diversity", "", "-1"},
		{"json", "", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := searchCmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestSearchCmd_Table(t *testing.T) {
	env := setupTestServices(t)
	env.search.result = domain.RetrievalResult{Query: "emergency fund", Hits: testHits()}

	out, err := runCommand("search", "emergency", "fund")
	require.NoError(t, err)

	assert.Equal(t, "emergency fund", env.search.query)
	assert.Equal(t, NeedStore|NeedAI, env.need)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] Saving Basics (0.82)")
	assert.Contains(t, out, "Source: saving.pdf")
	assert.Contains(t, out, "[2] Unknown Source (0.61)")
	assert.Contains(t, out, "Source: habits.pdf")
	assert.Less(t, strings.Index(out, "Saving Basics"), strings.Index(out, "Unknown Source"))
}

func TestSearchCmd_DefaultOptions(t *testing.T) {
	env := setupTestServices(t)

	_, err := runCommand("search", "budget")
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalOptions{K: 3, FetchK: 6, Diversity: 0.5}, env.search.opts)
}

func TestSearchCmd_OverrideOptions(t *testing.T) {
	env := setupTestServices(t)

	_, err := runCommand("search", "-k", "5", "--fetch-k", "12", "--diversity", "0", "budget")
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalOptions{K: 5, FetchK: 12, Diversity: 0}, env.search.opts)
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand("search", "cryptocurrency")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_RetrievalFailure(t *testing.T) {
	env := setupTestServices(t)
	env.search.result = domain.RetrievalResult{Err: errors.Join(domain.ErrRetrieval, errors.New("store closed"))}

	out, err := runCommand("search", "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: retrieval failed")
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	env := setupTestServices(t)
	env.search.result = domain.RetrievalResult{Hits: testHits()}

	out, err := runCommand("search", "--json", "emergency fund")
	require.NoError(t, err)

	var hits []searchHitJSON
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "Saving Basics", hits[0].Title)
	assert.Equal(t, "saving.pdf", hits[0].Source)
	assert.InDelta(t, 0.82, hits[0].Score, 1e-9)
	assert.True(t, strings.HasSuffix(hits[0].Excerpt, "..."))
	assert.Equal(t, "habits.pdf", hits[1].Source)
}

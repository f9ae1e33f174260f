package domain

import "strings"

// excerptLen is the number of characters kept in a citation excerpt.
const excerptLen = 200

// unknownSource labels evidence without any source metadata.
const unknownSource = "Unknown"

// RetrievalOptions configures a retrieval query.
type RetrievalOptions struct {
	// K is the number of passages returned.
	K int

	// FetchK is the size of the candidate pool MMR selects from. FetchK >= K.
	FetchK int

	// Diversity weighs redundancy against relevance: 0 is pure
	// relevance, 1 is pure diversity.
	Diversity float64
}

// Hit is one retrieved passage.
type Hit struct {
	// Text is the passage content.
	Text string

	// Metadata is the flat record metadata.
	Metadata map[string]any

	// Score is the cosine similarity to the expanded query.
	Score float64
}

// Source returns the citation label for the hit: the first non-empty
// of source, url and source_file, or "Unknown".
func (h Hit) Source() string {
	for _, key := range []string{MetaSource, MetaURL, MetaSourceFile} {
		if s := metaString(h.Metadata, key); s != "" {
			return s
		}
	}
	return unknownSource
}

// Citation builds the display citation for the hit.
func (h Hit) Citation() Citation {
	title := metaString(h.Metadata, MetaTitle)
	if title == "" {
		title = metaString(h.Metadata, MetaSource)
	}
	if title == "" {
		title = "Unknown Source"
	}
	return Citation{
		Title:   title,
		Source:  h.Source(),
		Excerpt: Excerpt(h.Text),
	}
}

// RetrievalResult is the outcome of a retrieval query.
// Hits are in selection order and that order is kept through citation display.
type RetrievalResult struct {
	// Query is the original, unexpanded query.
	Query string

	// Hits are the selected passages.
	Hits []Hit

	// Err is set when retrieval failed. A failed retrieval has no hits.
	Err error
}

// CanAnswer returns true if retrieval succeeded with at least one hit.
func (r RetrievalResult) CanAnswer() bool {
	return r.Err == nil && len(r.Hits) > 0
}

// Citations returns one citation per hit, in hit order.
func (r RetrievalResult) Citations() []Citation {
	citations := make([]Citation, 0, len(r.Hits))
	for _, h := range r.Hits {
		citations = append(citations, h.Citation())
	}
	return citations
}

// Citation points the user at the evidence behind an answer.
type Citation struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
}

// Excerpt returns the first 200 characters of text followed by "...".
func Excerpt(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > excerptLen {
		runes = runes[:excerptLen]
	}
	return string(runes) + "..."
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[key].(string)
	return strings.TrimSpace(s)
}

package core

import (
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"calmcoach.app/backend/internal/knowledge"
)

// DefaultTopK is how many knowledge chunks a query retrieves at most.
const DefaultTopK = 5

// stopWords are discarded from queries before scoring, along with any token
// shorter than minTokenLen.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "man": {}, "new": {}, "now": {}, "old": {}, "see": {},
	"two": {}, "way": {}, "who": {}, "did": {}, "get": {}, "may": {},
	"she": {}, "use": {}, "that": {}, "with": {}, "have": {}, "this": {},
	"will": {}, "your": {}, "from": {}, "they": {}, "been": {}, "were": {},
	"when": {}, "what": {}, "there": {}, "their": {}, "would": {}, "about": {},
	"cant": {}, "cannot": {}, "dont": {}, "very": {}, "just": {}, "like": {},
	"feel": {}, "feeling": {}, "always": {}, "really": {},
}

const minTokenLen = 3

// Retriever scores knowledge chunks against free-text queries by keyword
// overlap. No embeddings are involved; one point per query token contained in
// the chunk's lowercased content.
type Retriever struct {
	chunks []knowledge.Chunk
	topK   int
}

func NewRetriever(chunks []knowledge.Chunk, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{chunks: chunks, topK: topK}
}

type scoredChunk struct {
	chunk knowledge.Chunk
	score int
}

// Retrieve returns at most topK chunks ranked by descending score, dropping
// zero-score chunks. Ties keep the knowledge base's original order. An empty
// or all-stop-word query returns an empty result, never an error.
func (r *Retriever) Retrieve(query string) []knowledge.Chunk {
	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return nil
	}

	scored := make([]scoredChunk, 0, len(r.chunks))
	for _, chunk := range r.chunks {
		content := strings.ToLower(chunk.Content)
		score := 0
		for _, token := range tokens {
			if strings.Contains(content, token) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredChunk{chunk: chunk, score: score})
		}
	}

	// Stable: equal scores stay in knowledge-base order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return lo.Map(scored, func(sc scoredChunk, _ int) knowledge.Chunk {
		return sc.chunk
	})
}

// tokenizeQuery lowercases, replaces punctuation with spaces, and drops stop
// words and short tokens.
func tokenizeQuery(query string) []string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return lo.Filter(strings.Fields(b.String()), func(token string, _ int) bool {
		if len(token) < minTokenLen {
			return false
		}
		_, stop := stopWords[token]
		return !stop
	})
}

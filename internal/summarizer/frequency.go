package summarizer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	DefaultMinWords = 50
	DefaultMaxWords = 150
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered)
// and keeps the best ones in document order until a word budget is met.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

// Summarize returns between minWords and maxWords words of the highest ranked
// sentences. Text shorter than minWords is returned whole.
func (s *FrequencySummarizer) Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if maxWords < minWords {
		maxWords = max(minWords, DefaultMaxWords)
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return "", nil
	}
	ranked := s.rank(sentences)

	var selected []int
	words := 0
	for _, idx := range ranked {
		n := len(strings.Fields(sentences[idx]))
		if words >= minWords && words+n > maxWords {
			continue
		}
		selected = append(selected, idx)
		words += n
		if words >= maxWords {
			break
		}
	}
	sort.Ints(selected)

	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return clipWords(strings.Join(out, " "), maxWords), nil
}

// rank returns sentence indexes ordered from most to least representative.
func (s *FrequencySummarizer) rank(sentences []string) []int {
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range tokens(sent) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Normalize by sentence length to avoid bias towards long sentences.
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	out := make([]int, len(scores))
	for i, p := range scores {
		out[i] = p.idx
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func clipWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

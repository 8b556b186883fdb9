package summarizer

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"docintel/internal/domain"
)

const (
	notFound       = "Answer not found in document."
	notSpecified   = "NOT SPECIFIED"
	notApplicable  = "NOT APPLICABLE"
	elaborateLimit = 3
)

var (
	obligationCues = []string{"shall", "must", "agrees to", "will pay", "is required to", "undertakes"}
	riskCues       = map[string]string{
		"penalt":    "Financial",
		"late fee":  "Financial",
		"interest":  "Financial",
		"liab":      "Legal",
		"indemn":    "Legal",
		"breach":    "Legal",
		"terminat":  "Operational",
		"delay":     "Operational",
		"reputat":   "Reputational",
		"confident": "Legal",
	}
)

// Extractive answers document tasks without a language model by selecting
// sentences from the source text.
type Extractive struct {
	*FrequencySummarizer
}

var _ domain.Assistant = (*Extractive)(nil)

func NewExtractive() *Extractive {
	return &Extractive{FrequencySummarizer: NewFrequencySummarizer()}
}

// Answer returns the sentences that overlap the question the most. Specific
// mode returns the single best sentence.
func (e *Extractive) Answer(ctx context.Context, document, question string, mode domain.AnswerMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	limit := elaborateLimit
	if mode == domain.AnswerSpecific {
		limit = 1
	}
	best := LexicalRank(question, splitSentences(document), limit)
	if len(best) == 0 {
		return notFound, nil
	}
	return strings.Join(best, " "), nil
}

// Obligations lists sentences phrased as commitments as a JSON array.
func (e *Extractive) Obligations(ctx context.Context, document string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	items := []map[string]string{}
	for _, sent := range splitSentences(document) {
		lower := strings.ToLower(sent)
		if !containsAny(lower, obligationCues) {
			continue
		}
		recurrence, frequency := "No", notApplicable
		for _, f := range []string{"daily", "weekly", "monthly", "quarterly", "annually", "yearly"} {
			if strings.Contains(lower, f) {
				recurrence, frequency = "Yes", f
				break
			}
		}
		items = append(items, map[string]string{
			"Obligation Summary":                sent,
			"Obligation Type":                   obligationType(lower),
			"Obligation Start Date":             notSpecified,
			"Obligation End Date":               notSpecified,
			"Obligation Recurrence":             recurrence,
			"Obligation Recurrence Frequency":   frequency,
			"Obligation Associated Risk Factor": riskFactor(lower),
		})
	}
	return encode(items)
}

// Risks lists sentences mentioning penalties, liability or similar cues as a
// JSON array.
func (e *Extractive) Risks(ctx context.Context, document string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	items := []map[string]string{}
	for _, sent := range splitSentences(document) {
		lower := strings.ToLower(sent)
		category := ""
		for _, cue := range sortedKeys(riskCues) {
			if strings.Contains(lower, cue) {
				category = riskCues[cue]
				break
			}
		}
		if category == "" {
			continue
		}
		items = append(items, map[string]string{
			"Risk Summary":  sent,
			"Risk Category": category,
			"Risk Severity": riskFactor(lower),
		})
	}
	return encode(items)
}

// StreamChat answers from the retrieved context and delivers it as one chunk.
func (e *Extractive) StreamChat(ctx context.Context, contextText, query string, fn func(chunk string) error) error {
	out, err := e.Answer(ctx, contextText, query, domain.AnswerElaborate)
	if err != nil {
		return err
	}
	return fn(out)
}

// Converse answers message from the document sentences, falling back to the
// earlier messages and replies of the conversation.
func (e *Extractive) Converse(ctx context.Context, document string, history []domain.Exchange, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if best := LexicalRank(message, splitSentences(document), elaborateLimit); len(best) > 0 {
		return strings.Join(best, " "), nil
	}
	var earlier []string
	for _, ex := range history {
		earlier = append(earlier, splitSentences(ex.Message+"\n"+ex.Reply)...)
	}
	if best := LexicalRank(message, earlier, 1); len(best) > 0 {
		return best[0], nil
	}
	return notFound, nil
}

// LexicalRank orders texts by Ochiai token overlap with query and returns at
// most limit texts with a positive score.
func LexicalRank(query string, texts []string, limit int) []string {
	qset := tokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, 0, len(texts))
	for i, t := range texts {
		if s := ochiai(qset, t); s > 0 {
			scores = append(scores, pair{i, s})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	out := make([]string, len(scores))
	for i, p := range scores {
		out[i] = texts[p.idx]
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	toks := tokens(s)
	m := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		m[t] = struct{}{}
	}
	return m
}

// ochiai computes |A∩B| / sqrt(|A||B|) over distinct tokens.
func ochiai(qset map[string]struct{}, text string) float64 {
	seen := tokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}

func obligationType(lower string) string {
	switch {
	case containsAny(lower, []string{"pay", "fee", "invoice", "price"}):
		return "Payment"
	case containsAny(lower, []string{"deliver", "ship"}):
		return "Delivery"
	case containsAny(lower, []string{"warrant", "guarantee"}):
		return "Warranty/Guarantee"
	case containsAny(lower, []string{"intellectual property", "license", "copyright"}):
		return "Intellectual Property"
	case strings.Contains(lower, "terminat"):
		return "Termination"
	case containsAny(lower, []string{"service", "support", "maintain"}):
		return "Service"
	}
	return "Other"
}

func riskFactor(lower string) string {
	switch {
	case containsAny(lower, []string{"penalt", "terminat", "breach", "indemn"}):
		return "High"
	case containsAny(lower, []string{"late", "interest", "liab", "delay"}):
		return "Medium"
	case containsAny(lower, []string{"must", "shall"}):
		return "Low"
	}
	return "No Risk"
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encode(items []map[string]string) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

type recordingGenerator struct {
	prompts []string
	opts    []domain.GenerateOptions
	reply   string
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	return g.reply, g.err
}

func (g *recordingGenerator) Stream(_ context.Context, prompt string, opts domain.GenerateOptions, fn func(string) error) error {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	if g.err != nil {
		return g.err
	}
	return fn(g.reply)
}

func TestChatBot_Summarize(t *testing.T) {
	gen := &recordingGenerator{reply: "short"}
	out, err := NewChatBot(gen).Summarize(context.Background(), "long document", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, "short", out)
	assert.Contains(t, gen.prompts[0], "between 10 and 20 words")
	assert.Equal(t, 0.7, gen.opts[0].Temperature)
}

func TestChatBot_ObligationsAndRisksUseSpecificMode(t *testing.T) {
	gen := &recordingGenerator{reply: "[]"}
	bot := NewChatBot(gen)

	_, err := bot.Obligations(context.Background(), "contract")
	require.NoError(t, err)
	_, err = bot.Risks(context.Background(), "contract")
	require.NoError(t, err)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "Obligation Recurrence Frequency")
	assert.Contains(t, gen.prompts[0], "single line")
	assert.Contains(t, gen.prompts[1], "Risk Severity")
	assert.Equal(t, 0.2, gen.opts[1].Temperature)
}

func TestChatBot_StreamChat(t *testing.T) {
	gen := &recordingGenerator{reply: "grounded"}
	var got string
	err := NewChatBot(gen).StreamChat(context.Background(), "ctx text", "q", func(c string) error {
		got += c
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "grounded", got)
	assert.Contains(t, gen.prompts[0], "ctx text")
}

func TestChatBot_ErrorsWrap(t *testing.T) {
	gen := &recordingGenerator{err: domain.ErrGeneration}
	_, err := NewChatBot(gen).Answer(context.Background(), "d", "q", domain.AnswerElaborate)
	assert.True(t, errors.Is(err, domain.ErrGeneration))
}

func TestChatBot_ConverseIncludesDocumentAndHistory(t *testing.T) {
	gen := &recordingGenerator{reply: "The deposit is two months."}
	history := []domain.Exchange{{Message: "who is the tenant?", Reply: "Ana."}}

	out, err := NewChatBot(gen).Converse(context.Background(), "Lease text.", history, "and the deposit?")
	require.NoError(t, err)
	assert.Equal(t, "The deposit is two months.", out)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Document:\nLease text.")
	assert.Contains(t, prompt, "User: who is the tenant?\nAssistant: Ana.")
	assert.True(t, strings.HasSuffix(prompt, "New message: and the deposit?\nResponse:"))
	assert.Equal(t, 0.2, gen.opts[0].Temperature)
}

func TestConversationPrompt_WithoutDocument(t *testing.T) {
	prompt := ConversationPrompt("  ", nil, "hello")
	assert.NotContains(t, prompt, "Document:")
	assert.Contains(t, prompt, "New message: hello")
}

package llm

import (
	"context"
	"fmt"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

const (
	summaryTemperature = 0.7
	answerTemperature  = 0.2
)

// ChatBot turns document tasks into prompts for a Generator.
type ChatBot struct {
	gen domain.Generator
}

var _ domain.Assistant = (*ChatBot)(nil)

func NewChatBot(gen domain.Generator) *ChatBot {
	return &ChatBot{gen: gen}
}

// Summarize returns a summary of text between minWords and maxWords words.
func (b *ChatBot) Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	out, err := b.gen.Generate(ctx, SummaryPrompt(text, minWords, maxWords), domain.GenerateOptions{Temperature: summaryTemperature})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	logger.Info("Generated summary for document of length %d.", len(text))
	return out, nil
}

// Answer answers question using only the document text.
func (b *ChatBot) Answer(ctx context.Context, document, question string, mode domain.AnswerMode) (string, error) {
	out, err := b.gen.Generate(ctx, AnswerPrompt(document, question, mode), domain.GenerateOptions{Temperature: answerTemperature})
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	logger.Info("Generated answer for question: '%s'.", question)
	return out, nil
}

// Obligations asks for a JSON array of the obligations in document.
func (b *ChatBot) Obligations(ctx context.Context, document string) (string, error) {
	return b.Answer(ctx, document, ObligationsInstruction(document), domain.AnswerSpecific)
}

// Risks asks for a JSON array of the risks in document.
func (b *ChatBot) Risks(ctx context.Context, document string) (string, error) {
	return b.Answer(ctx, document, RisksInstruction(document), domain.AnswerSpecific)
}

// Converse replies to message given the document and the earlier exchanges.
func (b *ChatBot) Converse(ctx context.Context, document string, history []domain.Exchange, message string) (string, error) {
	out, err := b.gen.Generate(ctx, ConversationPrompt(document, history, message), domain.GenerateOptions{Temperature: answerTemperature})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	logger.Info("Generated chat response for message: '%s'.", message)
	return out, nil
}

// StreamChat is Chat delivering partial output to fn as it arrives.
func (b *ChatBot) StreamChat(ctx context.Context, contextText, query string, fn func(chunk string) error) error {
	return b.gen.Stream(ctx, KnowledgeBasePrompt(contextText, query), domain.GenerateOptions{Temperature: answerTemperature}, fn)
}

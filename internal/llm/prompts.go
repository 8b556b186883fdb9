package llm

import (
	"fmt"
	"strings"

	"docintel/internal/domain"
)

// FallbackAnswer is returned when the knowledge base holds nothing relevant.
const FallbackAnswer = "I'm not sure about that. Please contact support."

// NotFoundAnswer is what the model is told to say when a document lacks the answer.
const NotFoundAnswer = "Answer not found in document."

func SummaryPrompt(document string, minWords, maxWords int) string {
	return fmt.Sprintf(`You are an expert content summarizer. You take content in and output only a summary.

Combine all of your understanding of the content and summarize the content into a concise summary between %d and %d words.
Summarize the content completely and ensure that the summary is LOGICAL, RELEVANT and NOT truncated.
You only output human readable Markdown.
Do NOT output introductory phrases, headings, commentary, extra text, warnings or notes. Return the requested summary ONLY.
Do NOT repeat items in the summary.
Do NOT start items with the same opening words.

INPUT:
%s`, minWords, maxWords, document)
}

func AnswerPrompt(document, question string, mode domain.AnswerMode) string {
	normalized := strings.Join(strings.Fields(document), " ")
	var b strings.Builder
	fmt.Fprintf(&b, "Document text: %s\n\nQuestion: %s\n\n", normalized, question)
	b.WriteString("You are an expert content analyzer and can accurately generate an answer to a question based on the document text relevant to the question asked.\n")
	if mode == domain.AnswerSpecific {
		b.WriteString(`Return ONLY the essential value in a single line, in the requested format.
You only output human-readable Markdown.
Do NOT output any introductory phrases, headings, commentary, extra text, warnings, or notes.
Do NOT repeat items in the answer.
Answer the question based ONLY on the information provided in the document text.
If the answer is explicitly stated in the document, provide the answer DIRECTLY and stop.
If the answer requires inference or summarization of information within the document, provide a concise and accurate response DIRECTLY and stop.
`)
		fmt.Fprintf(&b, "If the answer cannot be found within the provided document text, output: '%s' and stop.\n", NotFoundAnswer)
		b.WriteString(`Do NOT include any external information or assumptions beyond what is present in the document.
Output the answer DIRECTLY, without any prefixes, labels, or additional text.`)
		return b.String()
	}
	b.WriteString(`Return a detailed answer with necessary and relevant explanation.
If the answer is explicitly stated in the document, provide the answer directly.
If the answer requires inference or summarization of information within the document, provide a concise and accurate response.
You only output human readable Markdown.
Do NOT output introductory phrases, headings, commentary, extra text, warnings or notes. Return the requested answer ONLY.
Do NOT repeat items in the answer.
Answer the question based ONLY on the information provided in the document text.
`)
	fmt.Fprintf(&b, "If the answer cannot be found within the provided document text, state: '%s' and stop.\n", NotFoundAnswer)
	b.WriteString("Do not include any external information or assumptions beyond what is present in the document.")
	return b.String()
}

// ObligationKeys are the attributes extracted for every obligation.
var ObligationKeys = []string{
	"Obligation Summary",
	"Obligation Type",
	"Obligation Start Date",
	"Obligation End Date",
	"Obligation Recurrence",
	"Obligation Recurrence Frequency",
	"Obligation Associated Risk Factor",
}

func ObligationsInstruction(document string) string {
	quoted := make([]string, len(ObligationKeys))
	for i, k := range ObligationKeys {
		quoted[i] = "'" + k + "'"
	}
	return fmt.Sprintf(`Document text: %s
Identify and extract all obligations from the provided document. For each obligation, extract the following attributes:
- Obligation Summary
- Obligation Type (choose from: Payment, Delivery, Service, Warranty/Guarantee, Intellectual Property, Termination, Other)
- Obligation Start Date (if specified, otherwise 'NOT SPECIFIED')
- Obligation End Date (if specified, otherwise 'NOT SPECIFIED')
- Obligation Recurrence (Yes/No)
- Obligation Recurrence Frequency (if recurring, e.g., monthly, weekly, daily; otherwise 'NOT APPLICABLE')
- Obligation Associated Risk Factor (High, Medium, Low, or No Risk)
Output ONLY a JSON array where each element is a JSON object with the keys: %s.`,
		document, strings.Join(quoted, ", "))
}

func RisksInstruction(document string) string {
	return fmt.Sprintf(`Document text: %s
Identify and list all risks present in the document. A risk is a potential negative consequence or issue arising from the obligations or other aspects of the document.
For each risk, output a JSON object with the following keys:
- Risk Summary: A concise summary of the risk.
- Risk Category: Choose one from Financial, Operational, Legal, Reputational, Strategic, or Other.
- Risk Severity: One of High, Medium, or Low.
Output ONLY a JSON array of such objects without any additional commentary.`, document)
}

func KnowledgeBasePrompt(contextText, query string) string {
	return fmt.Sprintf(`Use only the following context to answer the question. If the context is insufficient, respond with '%s'

Context:
%s

Question: %s

Answer:`, FallbackAnswer, contextText, query)
}

// ConversationPrompt continues a conversation about an optional document.
func ConversationPrompt(document string, history []domain.Exchange, message string) string {
	var b strings.Builder
	b.WriteString("Conversation about the document:\n")
	if doc := strings.TrimSpace(document); doc != "" {
		fmt.Fprintf(&b, "Document:\n%s\n\n", doc)
	}
	b.WriteString("Conversation history:\n")
	for _, ex := range history {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Message, ex.Reply)
	}
	fmt.Fprintf(&b, "\nNew message: %s\nResponse:", message)
	return b.String()
}

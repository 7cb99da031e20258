package pipeline

import (
	"fmt"
	"strings"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
)

const summarizeSystemPrompt = "You are a research assistant summarizing source material for a specific question. Focus on facts, data, statistics and expert opinions that help answer it. Stay objective and organize the summary into clear sections. Use only the provided content."

const draftSystemPrompt = "You are a research assistant drafting a comprehensive answer from research findings. Address the question directly, structure the answer with clear sections, acknowledge limitations in the evidence, and cite sources inline as [1], [2] matching the numbered source list. End with a \"References\" section listing every source."

const factCheckSystemPrompt = "You are a fact checker verifying an answer against source materials. Identify factual errors or misrepresentations, note claims the sources cannot support, and suggest corrections. If the answer is accurate and well supported, state that it has been verified."

const finalizeSystemPrompt = "You are a research assistant finalizing an answer using fact-check feedback. Correct every issue the fact check raised, keep the answer focused on the question, keep the inline citations, and end with a \"References\" section. Output only the final answer."

func formatSources(sources []models.Source) string {
	if len(sources) == 0 {
		return "No specific sources available.\n"
	}
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, s.Title, s.URL)
	}
	return b.String()
}

func formatPages(pages []Page, excerpt int) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, fmt.Sprintf("Source: %s (%s)\n\n%s", p.Title, p.URL, truncateRunes(p.Content, excerpt)))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func buildSummaryPrompt(question string, pages []Page, excerpt int) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nContent to summarize:\n\n")
	b.WriteString(formatPages(pages, excerpt))
	b.WriteString("\n\nWrite a detailed summary that can serve as the basis for a comprehensive answer.")
	return b.String()
}

func buildDraftPrompt(question, summary string, sources []models.Source) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nResearch Summary:\n")
	b.WriteString(summary)
	b.WriteString("\n\nSources:\n")
	b.WriteString(formatSources(sources))
	return b.String()
}

func buildFactCheckPrompt(question, answer string, pages []Page, excerpt int) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer to verify:\n")
	b.WriteString(answer)
	b.WriteString("\n\nSource Materials:\n")
	b.WriteString(formatPages(pages, excerpt))
	return b.String()
}

func buildFinalizePrompt(question, answer, factCheck string, sources []models.Source) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nDraft Answer:\n")
	b.WriteString(answer)
	b.WriteString("\n\nFact Check Results:\n")
	b.WriteString(factCheck)
	b.WriteString("\n\nSources:\n")
	b.WriteString(formatSources(sources))
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

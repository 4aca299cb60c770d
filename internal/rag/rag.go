// Package rag builds LLM conversations from assembled context.
package rag

import (
	"fmt"
	"path"
	"strings"

	"vybe/internal/assemble"
	"vybe/internal/llm"
)

const systemPrompt = `You are a code intelligence assistant. You answer questions about a codebase using the retrieved source code context provided below.

Focus on answering how, why, and where questions about the code. Explain architecture, data flow, and relationships between components. Reference specific file paths and line numbers when relevant.

Snippets marked as truncated were cut to fit the context budget; do not assume they are complete.

Do not generate new code unless explicitly asked. Keep answers concise and grounded in the provided context. If the context doesn't contain enough information to answer, say so.`

const contextAck = "I've reviewed the code context. What would you like to know?"

// BuildMessages constructs the message list for the LLM from assembled
// items, conversation history, and the current question.
func BuildMessages(items []assemble.ContextItem, history []llm.Message, question, overview string) []llm.Message {
	var msgs []llm.Message

	sys := systemPrompt
	if overview != "" {
		sys += "\n\n## Project Overview\n\n" + overview
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: sys})

	if len(items) > 0 {
		var b strings.Builder
		b.WriteString("Here is the relevant source code context:\n\n")
		for i, it := range items {
			fmt.Fprintf(&b, "--- Snippet %d: %s ---\n", i+1, describe(it))
			b.WriteString(it.Snippet)
			b.WriteString("\n\n")
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: b.String()})
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: contextAck})
	}

	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: question})
	return msgs
}

// describe renders the header of one snippet.
func describe(it assemble.ContextItem) string {
	var b strings.Builder
	b.WriteString(it.FilePath)
	if it.StartLine > 0 || it.EndLine > 0 {
		fmt.Fprintf(&b, " (lines %d-%d", it.StartLine, it.EndLine)
		if strings.HasSuffix(it.Reason, assemble.TruncatedSuffix) {
			b.WriteString(", approx.")
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " [%s]", it.Reason)
	return b.String()
}

// FormatItems renders items as Markdown with fenced code blocks.
func FormatItems(items []assemble.ContextItem) string {
	if len(items) == 0 {
		return "_No context found._\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "### %s\n\n", describe(it))
		fmt.Fprintf(&b, "score %.3f\n\n", it.Score)
		fence := "```"
		for strings.Contains(it.Snippet, fence) {
			fence += "`"
		}
		fmt.Fprintf(&b, "%s%s\n%s\n%s\n\n", fence, fenceLanguage(it.FilePath), it.Snippet, fence)
	}
	return b.String()
}

// Sources lists the distinct file paths of items in order.
func Sources(items []assemble.ContextItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if !seen[it.FilePath] {
			seen[it.FilePath] = true
			out = append(out, it.FilePath)
		}
	}
	return out
}

var fenceLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".sh":   "bash",
	".sql":  "sql",
}

func fenceLanguage(p string) string {
	return fenceLanguages[strings.ToLower(path.Ext(p))]
}

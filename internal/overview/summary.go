package overview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vybe/internal/llm"
)

const summaryPrompt = `You are a senior software architect looking at the structure of a codebase. Based ONLY on the folder statistics and file list below, write a short orientation for a developer new to the project, in Markdown.

Rules:
- ONLY describe what you can directly observe in the statistics and paths
- Do NOT guess features that aren't shown
- Name the folders that look central and the languages in use

Keep it under 200 words. Do not include code snippets.
`

// ErrEmpty is returned by Summarize for an empty overview.
var ErrEmpty = errors.New("overview is empty")

// Summarize asks the model for a prose orientation of the repository
// described by o.
func Summarize(ctx context.Context, gen llm.Generator, o RepoOverview) (string, error) {
	if o.IsZero() {
		return "", ErrEmpty
	}
	var b strings.Builder
	b.WriteString(summaryPrompt)
	b.WriteString("\n## Repository\n\n")
	b.WriteString(Markdown(o))

	reply, err := gen.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: b.String()}})
	if err != nil {
		return "", fmt.Errorf("summarize overview: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

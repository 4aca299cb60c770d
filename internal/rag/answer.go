package rag

import (
	"context"
	"fmt"

	"vybe/internal/assemble"
	"vybe/internal/llm"
)

// maxHistory is the number of messages (10 turns) kept between questions.
const maxHistory = 20

// Assembler produces prompt context for a query.
type Assembler interface {
	Assemble(ctx context.Context, workspaceID, query string, opts assemble.Options) []assemble.ContextItem
}

// Answerer answers questions about a workspace from assembled context.
type Answerer struct {
	Assembler   Assembler
	Generator   llm.Generator
	WorkspaceID string
	Options     assemble.Options
	// Overview is prepended to the system prompt when set.
	Overview string
}

// Answer is a generated reply and the context it was grounded on.
type Answer struct {
	Text  string
	Items []assemble.ContextItem
}

// Ask assembles context for question and asks the model. An empty context
// is not an error; the model is told what it has.
func (a *Answerer) Ask(ctx context.Context, question string, history []llm.Message) (Answer, error) {
	items := a.Assembler.Assemble(ctx, a.WorkspaceID, question, a.Options)
	msgs := BuildMessages(items, history, question, a.Overview)
	text, err := a.Generator.Generate(ctx, msgs)
	if err != nil {
		return Answer{Items: items}, fmt.Errorf("generate answer: %w", err)
	}
	return Answer{Text: text, Items: items}, nil
}

// AppendTurn records a question and its answer, keeping the most recent
// maxHistory messages.
func AppendTurn(history []llm.Message, question, answer string) []llm.Message {
	history = append(history,
		llm.Message{Role: llm.RoleUser, Content: question},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}

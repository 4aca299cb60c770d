package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vybe/internal/assemble"
	"vybe/internal/llm"
)

type fakeAssembler struct {
	items []assemble.ContextItem
	ws    string
	opts  assemble.Options
}

func (f *fakeAssembler) Assemble(_ context.Context, ws, _ string, opts assemble.Options) []assemble.ContextItem {
	f.ws, f.opts = ws, opts
	return f.items
}

type fakeGenerator struct {
	reply string
	err   error
	got   []llm.Message
}

func (g *fakeGenerator) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	g.got = msgs
	return g.reply, g.err
}

func TestAsk(t *testing.T) {
	asm := &fakeAssembler{items: []assemble.ContextItem{{FilePath: "proj/a.go", Snippet: "x", Reason: assemble.ReasonSemantic}}}
	gen := &fakeGenerator{reply: "it does x"}
	a := &Answerer{Assembler: asm, Generator: gen, WorkspaceID: "ws", Options: assemble.Options{MaxChars: 10}}

	ans, err := a.Ask(context.Background(), "what?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "it does x" || len(ans.Items) != 1 {
		t.Errorf("answer = %+v", ans)
	}
	if asm.ws != "ws" || asm.opts.MaxChars != 10 {
		t.Errorf("assembler called with %q %+v", asm.ws, asm.opts)
	}
	if len(gen.got) != 4 {
		t.Errorf("generator got %d messages", len(gen.got))
	}
}

func TestAskGenerateError(t *testing.T) {
	a := &Answerer{Assembler: &fakeAssembler{}, Generator: &fakeGenerator{err: errors.New("down")}}
	if _, err := a.Ask(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestAppendTurnCapsHistory(t *testing.T) {
	var h []llm.Message
	for i := range 15 {
		h = AppendTurn(h, fmt.Sprint("q", i), fmt.Sprint("a", i))
	}
	if len(h) != maxHistory {
		t.Fatalf("len = %d", len(h))
	}
	if h[0].Content != "q5" || h[len(h)-1].Content != "a14" {
		t.Errorf("kept %q .. %q", h[0].Content, h[len(h)-1].Content)
	}
}

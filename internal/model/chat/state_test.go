package chat

import (
	"errors"
	"testing"
)

func TestAssistantRejectsDuplicateCallIDs(t *testing.T) {
	_, err := Assistant("", ToolCall{ID: "a", Name: "x"}, ToolCall{ID: "a", Name: "y"})
	if !errors.Is(err, ErrDuplicateCallID) {
		t.Fatalf("expected ErrDuplicateCallID, got %v", err)
	}
}

func TestToolResultRequiresCallID(t *testing.T) {
	if _, err := ToolResult("", "get_price_info_tool", "ok"); !errors.Is(err, ErrMissingCallID) {
		t.Fatalf("expected ErrMissingCallID, got %v", err)
	}
}

func TestValidateRejectsCallsOnUserMessage(t *testing.T) {
	msg := User("hi")
	msg.ToolCalls = []ToolCall{{ID: "1", Name: "x"}}
	if err := msg.Validate(); !errors.Is(err, ErrUnexpectedCalls) {
		t.Fatalf("expected ErrUnexpectedCalls, got %v", err)
	}
}

func TestAppendRejectsOrphanToolResult(t *testing.T) {
	state, err := NewTurnState("t1", "42", nil, "merhaba")
	if err != nil {
		t.Fatalf("NewTurnState err: %v", err)
	}

	orphan, err := ToolResult("missing", "get_price_info_tool", "12 TL")
	if err != nil {
		t.Fatalf("ToolResult err: %v", err)
	}
	if err := state.Append(orphan); !errors.Is(err, ErrUnknownToolCall) {
		t.Fatalf("expected ErrUnknownToolCall, got %v", err)
	}
}

func TestToolResultsOnlyReturnLatestBatch(t *testing.T) {
	state, err := NewTurnState("t1", "42", nil, "iPhone fiyatı?")
	if err != nil {
		t.Fatalf("NewTurnState err: %v", err)
	}

	first, _ := Assistant("", ToolCall{ID: "c1", Name: "get_price_info_tool"})
	firstResult, _ := ToolResult("c1", "get_price_info_tool", "eski sonuç")
	second, _ := Assistant("", ToolCall{ID: "c2", Name: "get_product_details_tool"})
	secondResult, _ := ToolResult("c2", "get_product_details_tool", "yeni sonuç")

	if err := state.Append(first, firstResult, second, secondResult); err != nil {
		t.Fatalf("Append err: %v", err)
	}

	batch, ok := state.LastToolBatch()
	if !ok || batch.ToolCalls[0].ID != "c2" {
		t.Fatalf("unexpected latest batch: %+v", batch)
	}

	results := state.ToolResults(batch)
	if len(results) != 1 || results[0].Content != "yeni sonuç" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestLatestUserAndFinalAnswer(t *testing.T) {
	state, err := NewTurnState("t1", "42", []Message{User("önceki"), Answer("önceki cevap")}, "şimdiki")
	if err != nil {
		t.Fatalf("NewTurnState err: %v", err)
	}

	if _, ok := state.FinalAnswer(); ok {
		t.Fatal("turn without reply must not have a final answer")
	}

	if err := state.Append(System("not"), Answer("cevap")); err != nil {
		t.Fatalf("Append err: %v", err)
	}

	user, ok := state.LatestUser()
	if !ok || user.Content != "şimdiki" {
		t.Fatalf("unexpected latest user message: %+v", user)
	}

	answer, ok := state.FinalAnswer()
	if !ok || answer != "cevap" {
		t.Fatalf("unexpected final answer %q", answer)
	}
}

func TestHasHistory(t *testing.T) {
	fresh, err := NewTurnState("t1", "42", nil, "merhaba")
	if err != nil {
		t.Fatalf("NewTurnState err: %v", err)
	}
	if err := fresh.Append(Answer("selam")); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	if fresh.HasHistory() {
		t.Fatal("turn without prior messages must not report history")
	}

	replayed, err := NewTurnState("t2", "42", []Message{User("önceki"), Answer("önceki cevap")}, "tekrar söyler misin")
	if err != nil {
		t.Fatalf("NewTurnState err: %v", err)
	}
	if !replayed.HasHistory() {
		t.Fatal("turn seeded with history must report it")
	}
}

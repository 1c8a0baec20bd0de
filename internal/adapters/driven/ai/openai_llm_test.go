package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header")
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"content": content},
					"finish_reason": "stop",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewOpenAILLM_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAILLM("", "gpt-4o-mini", "")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestOpenAILLM_DecomposeQuery(t *testing.T) {
	server := chatServer(t, "what is raft leader election\nhow does raft handle log replication")
	defer server.Close()

	svc, err := NewOpenAILLM("sk-test", "gpt-4o-mini", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subQueries, err := svc.DecomposeQuery(context.Background(), "compare raft election and replication", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subQueries) != 2 {
		t.Fatalf("expected 2 sub-queries, got %d", len(subQueries))
	}
	if subQueries[0] != "what is raft leader election" {
		t.Errorf("unexpected first sub-query: %q", subQueries[0])
	}
}

func TestOpenAILLM_DecomposeQuery_CapsAtMax(t *testing.T) {
	server := chatServer(t, "one\ntwo\nthree\nfour\nfive")
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)

	subQueries, err := svc.DecomposeQuery(context.Background(), "a big question", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subQueries) != 3 {
		t.Errorf("expected 3 sub-queries, got %d", len(subQueries))
	}
}

func TestOpenAILLM_DecomposeQuery_StripsListMarkers(t *testing.T) {
	server := chatServer(t, "1. first query\n- second query")
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)

	subQueries, err := svc.DecomposeQuery(context.Background(), "question", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subQueries[0] != "first query" || subQueries[1] != "second query" {
		t.Errorf("list markers not stripped: %v", subQueries)
	}
}

func TestOpenAILLM_RerankChunks(t *testing.T) {
	server := chatServer(t, `[{"id":"c1","score":0.9,"text":"relevant bit"},{"id":"c2","score":0.1,"text":""}]`)
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)

	reranked, err := svc.RerankChunks(context.Background(), "query", []driven.RerankedChunk{
		{ChunkID: "c1", Text: "long passage one"},
		{ChunkID: "c2", Text: "long passage two"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reranked) != 2 {
		t.Fatalf("expected 2 reranked chunks, got %d", len(reranked))
	}
	if reranked[0].Score != 0.9 || reranked[0].Text != "relevant bit" {
		t.Errorf("unexpected first chunk: %+v", reranked[0])
	}
	if reranked[1].Text != "" {
		t.Errorf("expected empty compressed text for irrelevant chunk")
	}
}

func TestOpenAILLM_RerankChunks_DropsUnknownIDs(t *testing.T) {
	server := chatServer(t, `[{"id":"hallucinated","score":1.0,"text":"made up"}]`)
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)

	reranked, err := svc.RerankChunks(context.Background(), "query", []driven.RerankedChunk{
		{ChunkID: "c1", Text: "passage"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reranked) != 0 {
		t.Errorf("expected hallucinated IDs to be dropped, got %v", reranked)
	}
}

func TestOpenAILLM_GenerateAnswer(t *testing.T) {
	server := chatServer(t, "Raft elects leaders via timeouts [c1].")
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-test", "", server.URL)

	answer, err := svc.GenerateAnswer(context.Background(), "how does raft elect leaders", []driven.RerankedChunk{
		{ChunkID: "c1", Text: "raft uses randomized timeouts"},
		{ChunkID: "c2", Text: "unrelated content"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Answer == "" {
		t.Error("expected an answer")
	}
	if len(answer.ChunkIDs) != 1 || answer.ChunkIDs[0] != "c1" {
		t.Errorf("expected citation for c1 only, got %v", answer.ChunkIDs)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`[{"a":1}]`:                 `[{"a":1}]`,
		"```json\n[{\"a\":1}]\n```": `[{"a":1}]`,
		"```\n[]\n```":              `[]`,
		"  [1, 2]  ":                `[1, 2]`,
	}

	for input, want := range cases {
		if got := extractJSON(input); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", input, got, want)
		}
	}
}

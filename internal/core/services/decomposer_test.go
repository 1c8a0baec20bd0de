package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/retriva-core/internal/runtime"
)

func TestDecompose_IdentityWithoutLLM(t *testing.T) {
	decomposer := NewQueryDecomposer(runtime.NewServices(), time.Second, nil)

	subs := decomposer.Decompose(context.Background(), "q1", "  What IS  Raft? ", 4)
	require.Len(t, subs, 1)
	assert.Equal(t, "what is raft?", subs[0].Text)
	assert.Equal(t, 0, subs[0].Ordinal)
	assert.Equal(t, "q1", subs[0].ParentQueryID)
}

func TestDecompose_IdentityWhenMaxIsOne(t *testing.T) {
	services := runtime.NewServices()
	llm := mocks.NewMockLLMService()
	services.SetLLMService(llm)
	decomposer := NewQueryDecomposer(services, time.Second, nil)

	subs := decomposer.Decompose(context.Background(), "q1", "compound query", 1)
	require.Len(t, subs, 1)
	assert.Equal(t, "compound query", subs[0].Text)
	assert.Equal(t, 0, llm.DecomposeCalls, "LLM must not be called when max is 1")
}

func TestDecompose_OrdinalsFollowLLMOrder(t *testing.T) {
	services := runtime.NewServices()
	llm := mocks.NewMockLLMService()
	llm.Decompositions["compare raft and paxos"] = []string{
		"what is raft",
		"what is paxos",
	}
	services.SetLLMService(llm)
	decomposer := NewQueryDecomposer(services, time.Second, nil)

	subs := decomposer.Decompose(context.Background(), "q1", "Compare Raft AND Paxos", 4)
	require.Len(t, subs, 2)
	assert.Equal(t, "what is raft", subs[0].Text)
	assert.Equal(t, 0, subs[0].Ordinal)
	assert.Equal(t, "what is paxos", subs[1].Text)
	assert.Equal(t, 1, subs[1].Ordinal)
}

func TestDecompose_DeduplicatesAndCaps(t *testing.T) {
	services := runtime.NewServices()
	llm := mocks.NewMockLLMService()
	llm.Decompositions["big question"] = []string{
		"part one", "Part  One", "part two", "part three",
	}
	services.SetLLMService(llm)
	decomposer := NewQueryDecomposer(services, time.Second, nil)

	subs := decomposer.Decompose(context.Background(), "q1", "big question", 2)
	require.Len(t, subs, 2)
	assert.Equal(t, "part one", subs[0].Text)
	assert.Equal(t, "part two", subs[1].Text)
}

func TestDecompose_FailureFallsBackToIdentity(t *testing.T) {
	services := runtime.NewServices()
	llm := mocks.NewMockLLMService()
	llm.FailDecompose = errors.New("model unavailable")
	services.SetLLMService(llm)
	decomposer := NewQueryDecomposer(services, time.Second, nil)

	subs := decomposer.Decompose(context.Background(), "q1", "compound query", 4)
	require.Len(t, subs, 1)
	assert.Equal(t, "compound query", subs[0].Text)
}

func TestDecompose_EmptyPartsFallBackToIdentity(t *testing.T) {
	services := runtime.NewServices()
	llm := mocks.NewMockLLMService()
	llm.Decompositions["query"] = []string{"", "   "}
	services.SetLLMService(llm)
	decomposer := NewQueryDecomposer(services, time.Second, nil)

	subs := decomposer.Decompose(context.Background(), "q1", "query", 4)
	require.Len(t, subs, 1)
	assert.Equal(t, "query", subs[0].Text)
}

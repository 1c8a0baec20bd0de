package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Ensure OpenAILLM implements LLMService
var _ driven.LLMService = (*OpenAILLM)(nil)

// OpenAILLM implements LLMService using an OpenAI-compatible chat API.
type OpenAILLM struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAILLM creates a new OpenAI-compatible LLM service
func NewOpenAILLM(apiKey, model, baseURL string) (driven.LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAILLM{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// chatMessage is one message in a chat completion request
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the chat completions API
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse is the response from the chat completions API
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

const decomposeSystemPrompt = `You split compound questions into independent search queries.
Return one sub-query per line, nothing else.
If the question is already a single focused query, return it unchanged as the only line.
Never return more than %d lines.`

// DecomposeQuery splits a compound query into at most max sub-queries.
func (l *OpenAILLM) DecomposeQuery(ctx context.Context, query string, max int) ([]string, error) {
	content, err := l.chat(ctx, []chatMessage{
		{Role: "system", Content: fmt.Sprintf(decomposeSystemPrompt, max)},
		{Role: "user", Content: query},
	}, 512)
	if err != nil {
		return nil, err
	}

	var subQueries []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		subQueries = append(subQueries, line)
		if len(subQueries) == max {
			break
		}
	}

	if len(subQueries) == 0 {
		return []string{query}, nil
	}
	return subQueries, nil
}

const rerankSystemPrompt = `You score text passages for relevance to a query and compress them.
For each passage, respond with a JSON array of objects:
  [{"id": "<passage id>", "score": <0.0-1.0>, "text": "<compressed passage keeping only sentences relevant to the query>"}]
Set "text" to an empty string for passages that are irrelevant to the query.
Respond with the JSON array only.`

type rerankItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// RerankChunks re-scores and compresses the candidate chunks.
func (l *OpenAILLM) RerankChunks(ctx context.Context, query string, chunks []driven.RerankedChunk) ([]driven.RerankedChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nPassages:\n", query)
	for _, c := range chunks {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", c.ChunkID, c.Text)
	}

	content, err := l.chat(ctx, []chatMessage{
		{Role: "system", Content: rerankSystemPrompt},
		{Role: "user", Content: sb.String()},
	}, 4096)
	if err != nil {
		return nil, err
	}

	var items []rerankItem
	if err := json.Unmarshal([]byte(extractJSON(content)), &items); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}

	// Only keep items matching a known chunk ID
	known := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		known[c.ChunkID] = true
	}

	results := make([]driven.RerankedChunk, 0, len(items))
	for _, item := range items {
		if !known[item.ID] {
			continue
		}
		results = append(results, driven.RerankedChunk{
			ChunkID: item.ID,
			Score:   item.Score,
			Text:    item.Text,
		})
	}
	return results, nil
}

const generateSystemPrompt = `You answer questions using only the provided context passages.
Cite passages by their id in square brackets, e.g. [abc123].
If the context does not contain the answer, say so.`

// GenerateAnswer produces the final answer over the context chunks.
func (l *OpenAILLM) GenerateAnswer(ctx context.Context, query string, contexts []driven.RerankedChunk) (*driven.GeneratedAnswer, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nContext:\n", query)
	for _, c := range contexts {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", c.ChunkID, c.Text)
	}

	content, err := l.chat(ctx, []chatMessage{
		{Role: "system", Content: generateSystemPrompt},
		{Role: "user", Content: sb.String()},
	}, 2048)
	if err != nil {
		return nil, err
	}

	// Chunk IDs actually cited in the answer text
	var cited []string
	for _, c := range contexts {
		if strings.Contains(content, "["+c.ChunkID+"]") {
			cited = append(cited, c.ChunkID)
		}
	}

	return &driven.GeneratedAnswer{
		Answer:   content,
		ChunkIDs: cited,
	}, nil
}

// Model returns the model name being used
func (l *OpenAILLM) Model() string {
	return l.model
}

// Ping verifies the LLM service is available
func (l *OpenAILLM) Ping(ctx context.Context) error {
	_, err := l.chat(ctx, []chatMessage{
		{Role: "user", Content: "ping"},
	}, 1)
	return err
}

// Close releases resources held by the LLM service
func (l *OpenAILLM) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

// chat makes a chat completion request and returns the first choice content.
func (l *OpenAILLM) chat(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API returned status %d", resp.StatusCode)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// extractJSON strips markdown code fences the model sometimes wraps
// around JSON output.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

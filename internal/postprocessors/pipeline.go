package postprocessors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkPipeline = (*Pipeline)(nil)

// Pipeline implements ChunkPipeline.
// It chains typed processors in Order(), starting from the whole document
// content as a single chunk.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.ChunkProcessor
	sorted     bool
}

// NewPipeline creates a new chunk pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.ChunkProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.ChunkProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order to the raw document content.
func (p *Pipeline) Process(content string) []driven.TextChunk {
	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.ChunkProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	chunks := []driven.TextChunk{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   len(content),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}
	return chunks
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default processors.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(NewSplitter(DefaultSplitConfig()))
	p.Add(NewWhitespaceNormalizer())
	p.Add(NewDeduplicator(50))
	return p
}

// SplitConfig configures the splitter behavior.
type SplitConfig struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int

	// Overlap is the character overlap between chunks
	Overlap int

	// BreakOnBoundaries tries to break at paragraph/sentence boundaries
	BreakOnBoundaries bool
}

// DefaultSplitConfig returns sensible defaults.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		MaxChunkSize:      1000,
		Overlap:           200,
		BreakOnBoundaries: true,
	}
}

// Splitter cuts content into overlapping chunks, preferring paragraph and
// sentence boundaries. It is the first processor in the pipeline.
type Splitter struct {
	config SplitConfig
}

// Verify interface compliance
var _ driven.ChunkProcessor = (*Splitter)(nil)

// NewSplitter creates a new splitter with the given config.
func NewSplitter(config SplitConfig) *Splitter {
	return &Splitter{config: config}
}

// Process splits each incoming chunk.
func (s *Splitter) Process(chunks []driven.TextChunk) []driven.TextChunk {
	var result []driven.TextChunk
	position := 0
	for _, chunk := range chunks {
		result = append(result, s.split(chunk.Content, chunk.StartOffset, &position)...)
	}
	return result
}

// Name returns the processor name.
func (s *Splitter) Name() string {
	return "splitter"
}

// Order returns 0 - the splitter runs first.
func (s *Splitter) Order() int {
	return 0
}

func (s *Splitter) split(content string, baseOffset int, position *int) []driven.TextChunk {
	if len(content) <= s.config.MaxChunkSize {
		chunk := driven.TextChunk{
			Content:     content,
			Position:    *position,
			StartOffset: baseOffset,
			EndOffset:   baseOffset + len(content),
		}
		*position++
		return []driven.TextChunk{chunk}
	}

	var chunks []driven.TextChunk
	start := 0
	for start < len(content) {
		end := start + s.config.MaxChunkSize
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) && s.config.BreakOnBoundaries {
			if bp := breakPoint(content, start, end); bp > start {
				end = bp
			}
		}

		chunks = append(chunks, driven.TextChunk{
			Content:     content[start:end],
			Position:    *position,
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		})
		*position++

		if end >= len(content) {
			break
		}

		// Move start with overlap, always advancing
		next := end - s.config.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakPoint finds a good split position near maxEnd: paragraph break
// first, then sentence end, then word boundary.
func breakPoint(content string, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}
	window := content[searchStart:maxEnd]

	if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
		return searchStart + idx + 2
	}

	best := -1
	for _, ender := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(window, ender); idx != -1 {
			if pos := idx + len(ender); pos > best {
				best = pos
			}
		}
	}
	if best > 0 {
		return searchStart + best
	}

	if idx := strings.LastIndex(window, " "); idx != -1 {
		return searchStart + idx + 1
	}
	return maxEnd
}

// WhitespaceNormalizer normalizes line endings and collapses extra
// whitespace. Chunks that normalize to nothing are removed.
type WhitespaceNormalizer struct{}

// Verify interface compliance
var _ driven.ChunkProcessor = (*WhitespaceNormalizer)(nil)

// NewWhitespaceNormalizer creates a new whitespace normalizer.
func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process normalizes whitespace in chunks.
func (w *WhitespaceNormalizer) Process(chunks []driven.TextChunk) []driven.TextChunk {
	result := make([]driven.TextChunk, 0, len(chunks))
	for _, chunk := range chunks {
		content := strings.ReplaceAll(chunk.Content, "\r\n", "\n")
		content = strings.ReplaceAll(content, "\r", "\n")

		lines := strings.Split(content, "\n")
		for i, line := range lines {
			for strings.Contains(line, "  ") {
				line = strings.ReplaceAll(line, "  ", " ")
			}
			lines[i] = strings.TrimSpace(line)
		}
		content = strings.Join(lines, "\n")

		for strings.Contains(content, "\n\n\n") {
			content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
		}
		content = strings.TrimSpace(content)

		if len(content) > 0 {
			chunk.Content = content
			result = append(result, chunk)
		}
	}
	return result
}

// Name returns the processor name.
func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order returns 5 - runs between splitter and deduplicator.
func (w *WhitespaceNormalizer) Order() int {
	return 5
}

// Deduplicator removes chunks whose normalized content already appeared.
// Chunks shorter than minLength are kept unconditionally.
type Deduplicator struct {
	minLength int
}

// Verify interface compliance
var _ driven.ChunkProcessor = (*Deduplicator)(nil)

// NewDeduplicator creates a new deduplicator.
func NewDeduplicator(minLength int) *Deduplicator {
	return &Deduplicator{minLength: minLength}
}

// Process removes duplicate chunks.
func (d *Deduplicator) Process(chunks []driven.TextChunk) []driven.TextChunk {
	if len(chunks) <= 1 {
		return chunks
	}

	seen := make(map[string]bool)
	result := make([]driven.TextChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Content) < d.minLength {
			result = append(result, chunk)
			continue
		}
		key := strings.TrimSpace(strings.ToLower(chunk.Content))
		if !seen[key] {
			seen[key] = true
			result = append(result, chunk)
		}
	}
	return result
}

// Name returns the processor name.
func (d *Deduplicator) Name() string {
	return "deduplicator"
}

// Order returns 10 - the deduplicator runs last.
func (d *Deduplicator) Order() int {
	return 10
}

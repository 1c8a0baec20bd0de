package driven

// TextChunk is a fragment produced by the chunking pipeline before it is
// embedded and indexed.
type TextChunk struct {
	// Content is the chunk text
	Content string

	// Position is the chunk index within its document
	Position int

	// StartOffset is the byte offset of the chunk start in the document
	StartOffset int

	// EndOffset is the byte offset of the chunk end in the document
	EndOffset int
}

// ChunkProcessor is one typed stage of the chunking pipeline.
type ChunkProcessor interface {
	// Process transforms the chunk list
	Process(chunks []TextChunk) []TextChunk

	// Name returns the processor name
	Name() string

	// Order determines processing order (lower runs first)
	Order() int
}

// ChunkPipeline turns raw document content into index-ready chunks.
type ChunkPipeline interface {
	// Process splits content into processed chunks
	Process(content string) []TextChunk

	// List returns processor names in order
	List() []string
}

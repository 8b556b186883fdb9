package chunker

// FixedSizeChunker splits text into contiguous, non-overlapping slices of at
// most size characters. Characters are counted as runes.
type FixedSizeChunker struct {
	size int
}

// DefaultChunkSize is used when a non-positive size is configured.
const DefaultChunkSize = 1024

func NewFixedSizeChunker(size int) *FixedSizeChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &FixedSizeChunker{size: size}
}

// Size returns the maximum slice length in characters.
func (c *FixedSizeChunker) Size() int { return c.size }

// Split returns the slices of text. Text no longer than the chunk size is
// returned whole as the only slice, even when empty.
func (c *FixedSizeChunker) Split(text string) []string {
	return Split(text, c.size)
}

// Split cuts text at every size-th rune. The last slice may be shorter.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Len returns the length of text in characters.
func Len(text string) int {
	return len([]rune(text))
}

package model

import "fmt"

// Chunk is a contiguous, bounded slice of the source rows persisted as its own object.
// A chunk is consumed exactly once and its object is deleted afterwards.
type Chunk struct {
	JobID string
	// Index is the zero-based position of the chunk in the source.
	Index int
	// Key locates the chunk object in chunk storage.
	Key string
	// Header is the original header line of the source.
	Header []string
	// Rows is the number of data rows in the chunk.
	Rows int
}

func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d (%s, %d rows)", c.Index, c.Key, c.Rows)
}

func lineKey(chunk, line int) string {
	return fmt.Sprintf("chunk %d line %d", chunk, line)
}

package history

import "multimodal-rag-be/internal/entity"

// Trim keeps the most recent 2*maxTurns turns. It never mutates its input.
// maxTurns <= 0 disables trimming.
func Trim(turns []entity.Turn, maxTurns int) []entity.Turn {
	limit := 2 * maxTurns
	if maxTurns <= 0 || len(turns) <= limit {
		return append([]entity.Turn{}, turns...)
	}
	return append([]entity.Turn{}, turns[len(turns)-limit:]...)
}

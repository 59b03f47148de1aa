package entity

type ChunkType string

const (
	ChunkTypeText             ChunkType = "text"
	ChunkTypeTable            ChunkType = "table"
	ChunkTypeImage            ChunkType = "image"
	ChunkTypeDocumentOverview ChunkType = "document_overview"
)

func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeText, ChunkTypeTable, ChunkTypeImage, ChunkTypeDocumentOverview:
		return true
	}
	return false
}

// Chunk is one retrievable unit of a document. Page is 0 when unknown.
type Chunk struct {
	Id     string
	Text   string
	Type   ChunkType
	Source string
	Page   int
}

// RetrievalResult is produced per query and never persisted.
type RetrievalResult struct {
	Text   string
	Source string
	Page   int
	Type   ChunkType
	Score  float64
}

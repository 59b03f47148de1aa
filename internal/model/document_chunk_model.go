package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type DocumentChunk struct {
	Id        string          `gorm:"type:text;primaryKey"`
	SessionId string          `gorm:"type:text;not null;index"`
	Text      string          `gorm:"type:text;not null"`
	Type      string          `gorm:"type:varchar(32);not null;index"`
	Source    string          `gorm:"type:text;not null"`
	Page      int             `gorm:"not null;default:0"`
	Embedding pgvector.Vector `gorm:"type:vector;not null"` // dimension follows the configured embedding model
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

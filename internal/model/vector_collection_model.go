package model

import "time"

// VectorCollection marks that a session's index exists, even while empty.
type VectorCollection struct {
	SessionId string    `gorm:"type:text;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// ChatSession is the persisted conversation memory of one session.
type ChatSession struct {
	SessionId string         `gorm:"type:text;primaryKey"`
	History   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

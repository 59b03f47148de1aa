package entity

import (
	"time"
)

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type ChatSession struct {
	Id        string
	History   []Turn
	CreatedAt time.Time
	UpdatedAt *time.Time
}

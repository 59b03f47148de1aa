package dto

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

type UploadDocumentResponse struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id"`
	FileName  string `json:"file_name"`
	Chunks    int    `json:"chunks"`
	Queued    bool   `json:"queued"`
}

// PublishIngestDocumentMessage is the async ingestion payload.
type PublishIngestDocumentMessage struct {
	SessionId string `json:"session_id"`
	Path      string `json:"path"`
}

type ChatRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required"`
	K         int    `json:"k" validate:"min=0,max=50"`
}

// StreamQuestion is the websocket client frame; the session comes from the URL.
type StreamQuestion struct {
	Question string `json:"question" validate:"required"`
	K        int    `json:"k" validate:"min=0,max=50"`
}

type CitationDTO struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type ChatResponse struct {
	SessionId string        `json:"session_id"`
	Answer    string        `json:"answer"`
	Grounded  bool          `json:"grounded"`
	Citations []CitationDTO `json:"citations,omitempty"`
}

// StreamFrame is one websocket message: token, sources, done or error.
type StreamFrame struct {
	Type      string        `json:"type"`
	Content   string        `json:"content,omitempty"`
	Citations []CitationDTO `json:"citations,omitempty"`
}

type TurnDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type HistoryResponse struct {
	SessionId string    `json:"session_id"`
	Turns     []TurnDTO `json:"turns"`
}

type ListSessionsResponse struct {
	Sessions []string `json:"sessions"`
}

type DeleteSessionResponse struct {
	SessionId string `json:"session_id"`
	Found     bool   `json:"found"`
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/pkg/rag/executor"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

const (
	FrameToken   = "token"
	FrameSources = "sources"
	FrameDone    = "done"
	FrameError   = "error"
)

// Streamer opens a streamed answer for one question.
type Streamer interface {
	RunStream(ctx context.Context, req *dto.ChatRequest) (*executor.AnswerStream, error)
}

// Client serves one chat socket bound to a session. Questions are answered in arrival order.
type Client struct {
	Conn      *websocket.Conn
	SessionId string

	streamer Streamer
	logger   logger.ILogger

	// Buffered channel of outbound frames.
	Send chan dto.StreamFrame

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewClient(conn *websocket.Conn, sessionId string, streamer Streamer, log logger.ILogger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Conn:      conn,
		SessionId: sessionId,
		streamer:  streamer,
		logger:    log,
		Send:      make(chan dto.StreamFrame, 256),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ServeChat blocks until the peer goes away.
func ServeChat(c *websocket.Conn, sessionId string, streamer Streamer, log logger.ILogger) {
	client := NewClient(c, sessionId, streamer, log)
	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()
	client.readPump()
	<-done
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		c.cancel()
		close(c.Send)
	})
}

// readPump reads question frames and answers each one before reading the next.
func (c *Client) readPump() {
	defer c.shutdown()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WEBSOCKET", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionId,
					"error":      err.Error(),
				})
			}
			return
		}

		var q dto.StreamQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			c.emit(dto.StreamFrame{Type: FrameError, Content: "malformed question frame"})
			continue
		}
		if err := serverutils.ValidateRequest(q); err != nil {
			c.emit(dto.StreamFrame{Type: FrameError, Content: err.Error()})
			continue
		}

		if err := c.answer(q); err != nil && c.ctx.Err() != nil {
			return
		}
	}
}

func (c *Client) answer(q dto.StreamQuestion) error {
	stream, err := c.streamer.RunStream(c.ctx, &dto.ChatRequest{
		SessionId: c.SessionId,
		Question:  q.Question,
		K:         q.K,
	})
	if err != nil {
		c.emitError(err)
		return err
	}
	defer stream.Close()

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.emitError(err)
			return err
		}
		if !c.emit(dto.StreamFrame{Type: FrameToken, Content: token}) {
			return c.ctx.Err()
		}
	}

	citations := stream.Citations()
	if len(citations) > 0 {
		frame := dto.StreamFrame{Type: FrameSources, Citations: make([]dto.CitationDTO, len(citations))}
		for i, cit := range citations {
			frame.Citations[i] = dto.CitationDTO{Index: cit.Index, Source: cit.Source, Page: cit.Page}
		}
		c.emit(frame)
	}
	c.emit(dto.StreamFrame{Type: FrameDone})
	return nil
}

func (c *Client) emitError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	_, body := serverutils.Classify(err)
	c.emit(dto.StreamFrame{Type: FrameError, Content: body.Message})
}

// emit queues a frame unless the connection is gone.
func (c *Client) emit(frame dto.StreamFrame) bool {
	select {
	case <-c.ctx.Done():
		return false
	case c.Send <- frame:
		return true
	}
}

// writePump drains Send to the connection and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(frame); err != nil {
				c.logger.Debug("WEBSOCKET", "Write failed, closing", map[string]interface{}{
					"session_id": c.SessionId,
					"error":      err.Error(),
				})
				return
			}
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

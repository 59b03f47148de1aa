package controller

import (
	"bufio"
	"context"
	"errors"
	"io"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/internal/service"
	ragws "multimodal-rag-be/internal/websocket"
	"multimodal-rag-be/pkg/rag/executor"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	ragService service.IRAGService
	logger     logger.ILogger
}

func NewChatController(ragService service.IRAGService, log logger.ILogger) IChatController {
	return &chatController{
		ragService: ragService,
		logger:     log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("", c.Send)
	h.Post("stream", c.Stream)

	h.Use("/ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("/ws/:sessionId", websocket.New(func(conn *websocket.Conn) {
		ragws.ServeChat(conn, conn.Params("sessionId"), c.ragService, c.logger)
	}))
}

func (c *chatController) parse(ctx *fiber.Ctx) (*dto.ChatRequest, error) {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	req, err := c.parse(ctx)
	if err != nil {
		return err
	}

	res, err := c.ragService.Run(ctx.UserContext(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

// Stream writes tokens as text/plain and closes with the "Sources:" trailer.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	req, err := c.parse(ctx)
	if err != nil {
		return err
	}

	// the body writer outlives the handler, so the stream gets its own context
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := c.ragService.RunStream(streamCtx, req)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Session-Id", req.SessionId)

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()
		c.pipe(w, stream, req.SessionId)
	})
	return nil
}

func (c *chatController) pipe(w *bufio.Writer, stream *executor.AnswerStream, sessionId string) {
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Warn("CHAT", "Stream ended early", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
			return
		}
		if _, err := w.WriteString(token); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			// client went away
			return
		}
	}

	citations := stream.Citations()
	if len(citations) == 0 {
		_ = w.Flush()
		return
	}
	w.WriteString("\n\n" + constant.CitationsHeader + "\n")
	for i, cit := range citations {
		if i > 0 {
			w.WriteString("\n")
		}
		w.WriteString(cit.String())
	}
	_ = w.Flush()
}

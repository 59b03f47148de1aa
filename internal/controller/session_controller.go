package controller

import (
	"path/filepath"
	"strings"

	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type sessionController struct {
	ragService service.IRAGService
	asyncMode  bool
}

func NewSessionController(ragService service.IRAGService, asyncMode bool) ISessionController {
	return &sessionController{
		ragService: ragService,
		asyncMode:  asyncMode,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Post("upload", c.Upload)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id/history", c.History)
	h.Delete(":id", c.Delete)
}

func (c *sessionController) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files allowed")
	}

	content, err := file.Open()
	if err != nil {
		return err
	}
	defer content.Close()

	res, err := c.ragService.Upload(ctx.UserContext(), file.Filename, content)
	if err != nil {
		return err
	}

	if res.Queued {
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse(res.Message, res))
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.ragService.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	res, err := c.ragService.ListSessions(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *sessionController) History(ctx *fiber.Ctx) error {
	res, err := c.ragService.History(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	res, err := c.ragService.DeleteSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete session", res))
}

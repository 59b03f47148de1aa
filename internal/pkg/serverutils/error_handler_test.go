package serverutils

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"multimodal-rag-be/pkg/rag/errs"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type questionRequest struct {
	Question string `json:"question" validate:"required"`
	K        int    `json:"k" validate:"min=0,max=50"`
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "not found", err: errs.NotFound("session %s", "abc"), code: 404},
		{name: "upstream", err: fmt.Errorf("run: %w", errs.Upstream("generation", errors.New("boom"))), code: 502},
		{name: "fiber error", err: fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), code: 413},
		{name: "validation", err: ValidateRequest(questionRequest{}), code: 400},
		{name: "other", err: errors.New("disk on fire"), code: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := Classify(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.code, body.Code)
			assert.False(t, body.Success)
		})
	}
}

func TestClassify_HidesInternalDetails(t *testing.T) {
	_, body := Classify(errors.New("password=hunter2"))
	assert.NotContains(t, body.Message, "hunter2")
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(questionRequest{Question: "why?", K: 3}))

	err := ValidateRequest(questionRequest{K: 99})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "question")
	assert.Contains(t, verr.Fields, "k")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(c *fiber.Ctx) error {
		return errs.NotFound("document %s", "a.pdf")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("ok", nil))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "a.pdf")

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-image-studio/internal/validation"
)

// GenerateRequest is the JSON payload for a generation.
type GenerateRequest struct {
	// Prompt is the image description (1 to 4000 UTF-16 code units).
	Prompt string `json:"prompt" example:"a red fox in snow"`
	// Size is one of 1024x1024, 1024x1792, 1792x1024.
	Size string `json:"size" example:"1024x1024"`
	// Quality is standard or hd.
	Quality string `json:"quality" example:"standard"`
	// Style is vivid or natural.
	Style string `json:"style" example:"vivid"`
}

// GenerateResponse is the successful generation result.
type GenerateResponse struct {
	URL           string `json:"url" example:"https://img/1.png"`
	RevisedPrompt string `json:"revisedPrompt" example:"A red fox standing in fresh snow, soft morning light"`
}

// Generate godoc
// @ID          generateImage
// @Summary     Generate an image
// @Description Validates the payload and asks the provider for exactly one URL-format image. Each call is billed and computed fresh.
// @Tags        Images
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.GenerateRequest  true  "Generation payload"
//
// @Success     200  {object}  handlers.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Not configured or upstream failure"
// @Router      /generate [post]
func (h *Handlers) Generate(c *gin.Context) {
	raw, okBody := readBody(c)
	if !okBody {
		return
	}
	req, err := validation.ParseGenerate(raw)
	if err != nil {
		failFrom(c, err)
		return
	}

	res, err := h.genSvc.Generate(c.Request.Context(), req)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, GenerateResponse{URL: res.URL, RevisedPrompt: res.RevisedPrompt})
}

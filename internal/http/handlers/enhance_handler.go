package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-image-studio/internal/validation"
)

// EnhanceRequest is the JSON payload for a prompt rewrite.
type EnhanceRequest struct {
	Prompt string `json:"prompt" example:"a cat"`
}

// EnhanceResponse carries the rewritten prompt.
type EnhanceResponse struct {
	Enhanced string `json:"enhanced" example:"A regal ginger cat lounging in a sunbeam, warm golden light"`
}

// Enhance godoc
// @ID          enhancePrompt
// @Summary     Enhance a prompt
// @Description Rewrites the prompt with more vivid and artistic detail through a single completion call.
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.EnhanceRequest  true  "Enhancement payload"
//
// @Success     200  {object}  handlers.EnhanceResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Not configured, upstream failure, or empty result"
// @Router      /enhance [post]
func (h *Handlers) Enhance(c *gin.Context) {
	raw, okBody := readBody(c)
	if !okBody {
		return
	}
	prompt, err := validation.ParseEnhance(raw)
	if err != nil {
		failFrom(c, err)
		return
	}

	out, err := h.enhSvc.Enhance(c.Request.Context(), prompt)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, EnhanceResponse{Enhanced: out})
}

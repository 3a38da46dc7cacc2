// Package domain defines the core types of the image studio: the generation
// request and result exchanged with the provider proxy, the durable history
// item recorded after a successful generation, and the closed enumerations
// for image size, quality, and style.
//
// These types carry no behavior beyond enumeration checks; validation with
// human-readable messages lives in the validation package.
package domain

import "time"

// Size is the pixel dimension of a generated image.
type Size string

// Quality is the rendering quality requested from the provider.
type Quality string

// Style is the rendering style requested from the provider.
type Style string

const (
	SizeSquare    Size = "1024x1024"
	SizePortrait  Size = "1024x1792"
	SizeLandscape Size = "1792x1024"

	QualityStandard Quality = "standard"
	QualityHD       Quality = "hd"

	StyleVivid   Style = "vivid"
	StyleNatural Style = "natural"
)

// Sizes, Qualities, and Styles list the accepted values in display order.
var (
	Sizes     = []Size{SizeSquare, SizePortrait, SizeLandscape}
	Qualities = []Quality{QualityStandard, QualityHD}
	Styles    = []Style{StyleVivid, StyleNatural}
)

// Defaults applied to a fresh generation form.
const (
	DefaultSize    = SizeSquare
	DefaultQuality = QualityStandard
	DefaultStyle   = StyleVivid
)

// MaxPromptLength caps a prompt, measured in UTF-16 code units.
const MaxPromptLength = 4000

// Valid reports whether s is one of the enumerated sizes.
func (s Size) Valid() bool {
	for _, v := range Sizes {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a short human description of the size.
func (s Size) Label() string {
	switch s {
	case SizeSquare:
		return "Square (1024x1024)"
	case SizePortrait:
		return "Portrait (1024x1792)"
	case SizeLandscape:
		return "Landscape (1792x1024)"
	}
	return string(s)
}

// Valid reports whether q is one of the enumerated qualities.
func (q Quality) Valid() bool {
	for _, v := range Qualities {
		if q == v {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the enumerated styles.
func (s Style) Valid() bool {
	for _, v := range Styles {
		if s == v {
			return true
		}
	}
	return false
}

// GenerationRequest is the validated input of a single image generation.
// It is request-scoped and never retained after the provider call.
type GenerationRequest struct {
	Prompt  string  `json:"prompt"`
	Size    Size    `json:"size"`
	Quality Quality `json:"quality"`
	Style   Style   `json:"style"`
}

// GenerationResult is what the provider produced for a GenerationRequest.
//
// URL is owned by the provider and may expire. RevisedPrompt falls back to
// the original prompt when the provider does not supply one.
type GenerationResult struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revisedPrompt"`
}

// HistoryItem is one durable record of a past generation.
//
// ID and CreatedAt are assigned by the history store at insert time. Items
// are immutable once created; the only mutation is deletion.
type HistoryItem struct {
	ID            string    `json:"id"`
	Prompt        string    `json:"prompt"`
	RevisedPrompt string    `json:"revisedPrompt"`
	ImageURL      string    `json:"imageUrl"`
	Size          Size      `json:"size"`
	Quality       Quality   `json:"quality"`
	Style         Style     `json:"style"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewHistoryEntry is a HistoryItem without the store-assigned fields.
type NewHistoryEntry struct {
	Prompt        string
	RevisedPrompt string
	ImageURL      string
	Size          Size
	Quality       Quality
	Style         Style
}

// EntryFrom copies the request settings and provider result into an entry
// ready to be recorded.
func EntryFrom(req GenerationRequest, res GenerationResult) NewHistoryEntry {
	return NewHistoryEntry{
		Prompt:        req.Prompt,
		RevisedPrompt: res.RevisedPrompt,
		ImageURL:      res.URL,
		Size:          req.Size,
		Quality:       req.Quality,
		Style:         req.Style,
	}
}

// PromptExamples are starter prompts offered next to the prompt field.
var PromptExamples = []string{
	"A serene Japanese garden with cherry blossoms falling into a koi pond at sunset",
	"A futuristic cityscape with flying cars and neon lights reflecting off glass buildings",
	"A cozy cabin in the mountains during winter with smoke rising from the chimney",
	"An underwater coral reef teeming with colorful tropical fish and sea turtles",
	"A steampunk-inspired clockwork owl perched on a stack of leather-bound books",
	"A watercolor painting of a Parisian café on a rainy autumn evening",
}

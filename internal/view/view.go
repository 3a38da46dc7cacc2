// Package view renders controller and history state for the terminal and
// holds the user-facing notice texts. It has no behavior of its own.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-image-studio/internal/controller"
	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/utils"
)

// Notices shown after an intent completes.
const (
	NoticeGenerated     = "Image generated successfully!"
	NoticeGenerateFail  = "Failed to generate image"
	NoticeEnhanced      = "Prompt enhanced!"
	NoticeVary          = "Prompt loaded for variation. Edit and regenerate!"
	NoticeDownloaded    = "Image downloaded!"
	NoticeDownloadFail  = "Failed to download image"
	NoticeURLCopied     = "Image URL copied to clipboard!"
	NoticeURLCopyFail   = "Failed to copy URL"
	NoticePromptCopied  = "Prompt copied to clipboard!"
	NoticePromptCopyErr = "Failed to copy prompt"
	NoticeHistoryEmpty  = "No images generated yet. Your history will appear here."
	NoticeRemoved       = "Image removed from history"
	NoticeCleared       = "History cleared"
	NoticeNoResult      = "Generate an image first"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	boxStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1)

	title = cases.Title(language.English)
)

// QualityLabel is the display name of q.
func QualityLabel(q domain.Quality) string {
	if q == domain.QualityHD {
		return "HD"
	}
	return title.String(string(q))
}

// StyleLabel is the display name of s.
func StyleLabel(s domain.Style) string { return title.String(string(s)) }

// Counter renders the prompt length against the cap, counted the way a
// browser text field counts.
func Counter(prompt string) string {
	return fmt.Sprintf("%d/%d", utils.UTF16Len(prompt), domain.MaxPromptLength)
}

// Success and Failure format a one-line notice.
func Success(msg string) string { return successStyle.Render("✓ " + msg) }
func Failure(msg string) string { return errorStyle.Render("✗ " + msg) }

// Status formats a muted progress line.
func Status(msg string) string { return labelStyle.Render(msg) }

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + " " + valueStyle.Render(value)
}

// State renders the form, the request status, and the last outcome.
func State(s controller.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("AI Image Studio"))
	b.WriteString("\n")
	b.WriteString(row("Prompt", utils.Ellipsize(s.Prompt, 72)) + "  " + labelStyle.Render(Counter(s.Prompt)))
	b.WriteString("\n")
	b.WriteString(row("Size", s.Size.Label()))
	b.WriteString("\n")
	b.WriteString(row("Quality", QualityLabel(s.Quality)))
	b.WriteString("\n")
	b.WriteString(row("Style", StyleLabel(s.Style)))
	b.WriteString("\n")

	switch {
	case s.Loading():
		b.WriteString(Status("Generating..."))
	case s.Enhancing:
		b.WriteString(Status("Enhancing..."))
	case s.Err != "":
		b.WriteString(errorStyle.Render("Generation failed"))
		b.WriteString("\n")
		b.WriteString(s.Err)
	case s.Result != nil:
		b.WriteString(Result(*s.Result))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Result renders a generation result.
func Result(r domain.GenerationResult) string {
	return row("URL", r.URL) + "\n" + row("Revised", r.RevisedPrompt)
}

// History renders the collection, newest first. Nothing is rendered before
// the store has loaded.
func History(items []domain.HistoryItem, loaded bool, now time.Time) string {
	if !loaded {
		return ""
	}
	if len(items) == 0 {
		return labelStyle.Render(NoticeHistoryEmpty)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent Generations"))
	for i, it := range items {
		fmt.Fprintf(&b, "\n%2d. %s  %s  %s",
			i+1,
			labelStyle.Render(shortID(it.ID)),
			utils.Ellipsize(it.Prompt, 60),
			labelStyle.Render(TimeAgo(it.CreatedAt, now)))
	}
	return b.String()
}

// Item renders every recorded field of one history entry.
func Item(it domain.HistoryItem, now time.Time) string {
	created := it.CreatedAt.UTC().Format("2006-01-02 15:04 MST") + "  " + labelStyle.Render(TimeAgo(it.CreatedAt, now))
	return boxStyle.Render(strings.Join([]string{
		titleStyle.Render("Generation " + shortID(it.ID)),
		row("Prompt", it.Prompt),
		row("Revised", it.RevisedPrompt),
		row("URL", it.ImageURL),
		row("Size", it.Size.Label()),
		row("Quality", QualityLabel(it.Quality)),
		row("Style", StyleLabel(it.Style)),
		row("Created", created),
	}, "\n"))
}

// Examples renders the starter prompts with their selection index.
func Examples() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Try an example"))
	for i, p := range domain.PromptExamples {
		fmt.Fprintf(&b, "\n%d. %s", i, p)
	}
	return b.String()
}

// TimeAgo is a coarse relative age: "just now", then minutes, hours, days.
func TimeAgo(t, now time.Time) string {
	secs := int(now.Sub(t) / time.Second)
	if secs < 60 {
		return "just now"
	}
	mins := secs / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

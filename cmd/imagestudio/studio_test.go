package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-image-studio/internal/controller"
	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/history"
	"github.com/tbourn/go-image-studio/internal/repo"
	"github.com/tbourn/go-image-studio/internal/view"
)

type stubBackend struct{ calls int }

func (b *stubBackend) Generate(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	b.calls++
	return domain.GenerationResult{URL: "https://img/1.png", RevisedPrompt: "Revised: " + req.Prompt}, nil
}

func (b *stubBackend) Enhance(_ context.Context, p string) (string, error) {
	return "vivid " + p, nil
}

type stubDownloader struct{ dir string }

func (d *stubDownloader) Download(_ context.Context, url, dir string, now time.Time) (string, error) {
	d.dir = dir
	return filepath.Join(dir, "ai-image-1.png"), nil
}

func newTestStudio(t *testing.T) (*studio, *bytes.Buffer, *stubBackend, *repo.MemoryBus) {
	t.Helper()
	bus := repo.NewMemoryBus()
	store := history.New(bus.Slot("h"), 0)
	store.Load(context.Background())
	be := &stubBackend{}
	var out bytes.Buffer
	return &studio{
		ctl:   controller.New(be),
		store: store,
		dl:    &stubDownloader{},
		out:   &out,
		now:   time.Now,
		dir:   "/tmp/out",
	}, &out, be, bus
}

func stubClipboard(t *testing.T, fn func(string) error) {
	t.Helper()
	orig := copyToClipboard
	copyToClipboard = fn
	t.Cleanup(func() { copyToClipboard = orig })
}

func TestStudio_Session(t *testing.T) {
	s, out, be, _ := newTestStudio(t)
	var copied []string
	stubClipboard(t, func(text string) error { copied = append(copied, text); return nil })

	script := strings.Join([]string{
		"generate", // blank prompt: refused
		"prompt a red fox in snow",
		"quality hd",
		"quality ultra",
		"generate",
		"share",
		"copy-prompt",
		"vary",
		"download",
		"select 1",
		"bogus",
		"quit",
		"generate", // never reached
	}, "\n")
	require.NoError(t, s.run(context.Background(), strings.NewReader(script)))

	assert.Equal(t, 1, be.calls)
	items := s.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "a red fox in snow", items[0].Prompt)
	assert.Equal(t, domain.QualityHD, items[0].Quality)
	assert.Equal(t, []string{"https://img/1.png", "Revised: a red fox in snow"}, copied)

	// select restored the recorded prompt after vary changed it
	assert.Equal(t, "a red fox in snow", s.ctl.State().Prompt)
	assert.Equal(t, "/tmp/out", s.dl.(*stubDownloader).dir)

	text := out.String()
	for _, want := range []string{
		"enter a prompt first",
		"quality must be one of: standard, hd",
		"Generating...",
		view.NoticeGenerated,
		view.NoticeURLCopied,
		view.NoticePromptCopied,
		view.NoticeVary,
		view.NoticeDownloaded,
		"Recent Generations",
		`unknown command "bogus"`,
	} {
		assert.Contains(t, text, want)
	}
}

func TestStudio_ClipboardFailure(t *testing.T) {
	s, out, _, _ := newTestStudio(t)
	stubClipboard(t, func(string) error { return errors.New("no display") })

	s.exec(context.Background(), "prompt cat")
	s.exec(context.Background(), "generate")
	s.exec(context.Background(), "share")
	assert.Contains(t, out.String(), view.NoticeURLCopyFail)
}

func TestStudio_HistoryCommands(t *testing.T) {
	s, out, _, bus := newTestStudio(t)
	ctx := context.Background()
	s.exec(ctx, "example 0")
	s.exec(ctx, "generate")
	s.exec(ctx, "example 1")
	s.exec(ctx, "generate")
	require.Len(t, s.store.Items(), 2)

	s.exec(ctx, "rm 9")
	assert.Contains(t, out.String(), "no such history item")
	s.exec(ctx, "rm 1")
	require.Len(t, s.store.Items(), 1)
	assert.Equal(t, domain.PromptExamples[0], s.store.Items()[0].Prompt)

	s.exec(ctx, "clear")
	assert.Empty(t, s.store.Items())
	raw, _ := bus.Slot("h").Load(ctx)
	assert.Equal(t, "[]", string(raw))

	s.exec(ctx, "example 99")
	assert.Contains(t, out.String(), "example must be 0-5")
}

func TestStudio_NoResultNotices(t *testing.T) {
	s, out, _, _ := newTestStudio(t)
	var copied int
	stubClipboard(t, func(string) error { copied++; return nil })

	for _, line := range []string{"vary", "share", "copy-prompt", "download"} {
		out.Reset()
		s.exec(context.Background(), line)
		assert.Contains(t, out.String(), view.NoticeNoResult, line)
	}
	assert.Zero(t, copied)
	assert.Empty(t, s.dl.(*stubDownloader).dir)
}

func TestStudio_ItemActions(t *testing.T) {
	s, out, _, bus := newTestStudio(t)
	ctx := context.Background()
	var copied []string
	stubClipboard(t, func(text string) error { copied = append(copied, text); return nil })

	// Another view records an item; this session never generated anything.
	other := history.New(bus.Slot("h"), 0)
	other.Load(ctx)
	rec := other.Add(ctx, domain.NewHistoryEntry{
		Prompt: "old fox", RevisedPrompt: "An old fox", ImageURL: "https://img/old.png",
		Size: domain.SizePortrait, Quality: domain.QualityStandard, Style: domain.StyleVivid,
	})
	s.store.Reload(ctx)
	require.Len(t, s.store.Items(), 1)

	s.exec(ctx, "show 1")
	text := out.String()
	for _, want := range []string{"https://img/old.png", "An old fox", "Portrait (1024x1792)"} {
		assert.Contains(t, text, want)
	}

	s.exec(ctx, "share 1")
	s.exec(ctx, "copy-prompt "+rec.ID[:8])
	assert.Equal(t, []string{"https://img/old.png", "An old fox"}, copied)

	s.exec(ctx, "download 1 /tmp/items")
	assert.Equal(t, "/tmp/items", s.dl.(*stubDownloader).dir)
	s.exec(ctx, "download 1")
	assert.Equal(t, "/tmp/out", s.dl.(*stubDownloader).dir)

	out.Reset()
	s.exec(ctx, "share 7")
	assert.Contains(t, out.String(), "no such history item")

	out.Reset()
	s.exec(ctx, "rm 1")
	assert.Contains(t, out.String(), view.NoticeRemoved)
	assert.Empty(t, s.store.Items())
}

func TestStudio_Enhance(t *testing.T) {
	s, out, _, _ := newTestStudio(t)
	s.exec(context.Background(), "enhance")
	assert.Contains(t, out.String(), "enter a prompt first")

	s.exec(context.Background(), "prompt cat")
	s.exec(context.Background(), "enhance")
	assert.Equal(t, "vivid cat", s.ctl.State().Prompt)
	assert.Contains(t, out.String(), view.NoticeEnhanced)
}

func TestResolveItem(t *testing.T) {
	items := []domain.HistoryItem{{ID: "abc111"}, {ID: "abc222"}, {ID: "def333"}}

	it, err := resolveItem(items, "2")
	require.NoError(t, err)
	assert.Equal(t, "abc222", it.ID)

	it, err = resolveItem(items, "def")
	require.NoError(t, err)
	assert.Equal(t, "def333", it.ID)

	_, err = resolveItem(items, "abc")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveItem(items, "0")
	assert.ErrorIs(t, err, errNoSuchItem)
	_, err = resolveItem(items, "zzz")
	assert.ErrorIs(t, err, errNoSuchItem)
}

func TestRootCmd_ExamplesAndHistory(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "file")
	t.Setenv("HISTORY_PATH", filepath.Join(t.TempDir(), "h.json"))
	envFile := filepath.Join(t.TempDir(), "missing.env")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--env-file", envFile, "examples"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), domain.PromptExamples[0])

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--env-file", envFile, "history", "list"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), view.NoticeHistoryEmpty)
}

func TestRootCmd_HistoryItemCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	raw, err := json.Marshal([]domain.HistoryItem{{
		ID: "abcdef0123", Prompt: "fox", RevisedPrompt: "A fox", ImageURL: "https://img/f.png",
		Size: domain.SizeSquare, Quality: domain.QualityHD, Style: domain.StyleNatural,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	t.Setenv("HISTORY_BACKEND", "file")
	t.Setenv("HISTORY_PATH", path)
	envFile := filepath.Join(t.TempDir(), "missing.env")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs(append([]string{"--env-file", envFile, "history"}, args...))
		err := root.Execute()
		return out.String(), err
	}

	out, err := run("show", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "https://img/f.png")
	assert.Contains(t, out, "2026-01-02 03:04 UTC")

	var copied []string
	stubClipboard(t, func(text string) error { copied = append(copied, text); return nil })
	_, err = run("share", "1")
	require.NoError(t, err)
	_, err = run("share", "--prompt", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/f.png", "A fox"}, copied)

	_, err = run("show", "9")
	assert.ErrorIs(t, err, errNoSuchItem)

	out, err = run("rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, view.NoticeRemoved)
}

func TestRootCmd_GenerateRejectsBadSettings(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "none"), "generate", "--size", "big"})
	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, "Prompt is required, size must be one of: 1024x1024, 1024x1792, 1792x1024", err.Error())
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-image-studio/internal/controller"
	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/history"
	"github.com/tbourn/go-image-studio/internal/view"
)

const studioHelp = `commands:
  prompt <text>        set the prompt          example <n>     use a starter prompt
  size|quality|style <v>                       examples        list starter prompts
  generate             submit                  enhance         rewrite the prompt
  vary                 reuse revised prompt    reset           back to defaults
  show [n|id]          render the form, or one history item
  download [n|id] [dir]  save the image        share [n|id]    copy image URL
  copy-prompt [n|id]   copy revised prompt     history         list recorded items
  select <n|id>        restore item settings   rm <n|id>       remove an item
  clear                remove every item       help            this text
  quit                 leave

Without n|id, download, share and copy-prompt act on the current result.`

// syncWriter serializes writes from the input loop and watch callbacks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter { return &syncWriter{w: w} }

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// downloader is the part of the API client the studio needs besides the
// controller backend.
type downloader interface {
	Download(ctx context.Context, url, dir string, now time.Time) (string, error)
}

// studio is one interactive session: a controller, the shared history, and
// the bindings between user commands and both.
type studio struct {
	ctl   *controller.Controller
	store *history.Store
	dl    downloader
	out   io.Writer
	now   func() time.Time
	dir   string
}

func newStudioCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "studio",
		Short: "Interactive session with live history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.Watch(ctx); err != nil {
				return err
			}

			api := a.apiClient()
			s := &studio{
				ctl:   controller.New(api),
				store: store,
				dl:    api,
				out:   newSyncWriter(a.out),
				now:   time.Now,
				dir:   dir,
			}
			return s.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&dir, "download-dir", "o", ".", "default directory for download")
	return cmd
}

func (s *studio) printf(format string, args ...any) { fmt.Fprintf(s.out, format, args...) }
func (s *studio) println(v string)                  { fmt.Fprintln(s.out, v) }

// run reads commands until EOF or quit.
func (s *studio) run(ctx context.Context, in io.Reader) error {
	unsubCtl := s.ctl.Subscribe(func(st controller.State) {
		switch {
		case st.Loading():
			s.println(view.Status("Generating..."))
		case st.Enhancing:
			s.println(view.Status("Enhancing..."))
		}
	})
	defer unsubCtl()

	var inLoop sync.Mutex // held while a command runs; external reloads print only when idle
	unsubHist := s.store.Subscribe(func(items []domain.HistoryItem) {
		if !inLoop.TryLock() {
			return
		}
		defer inLoop.Unlock()
		s.println("\n" + view.History(items, true, s.now()))
	})
	defer unsubHist()

	s.println(view.State(s.ctl.State()))
	s.println(view.History(s.store.Items(), s.store.Loaded(), s.now()))

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for {
		s.printf("> ")
		if !sc.Scan() {
			s.println("")
			return sc.Err()
		}
		inLoop.Lock()
		quit := s.exec(ctx, sc.Text())
		inLoop.Unlock()
		if quit {
			return nil
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (s *studio) exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.println(studioHelp)
	case "show":
		if arg == "" {
			s.println(view.State(s.ctl.State()))
			break
		}
		it, err := resolveItem(s.store.Items(), arg)
		if err != nil {
			s.println(view.Failure(err.Error()))
			break
		}
		s.println(view.Item(it, s.now()))

	case "prompt", "p":
		s.ctl.SetPrompt(arg)
		s.println(view.Status(view.Counter(arg)))
	case "size":
		if !domain.Size(arg).Valid() {
			s.println(view.Failure("size must be one of: 1024x1024, 1024x1792, 1792x1024"))
			break
		}
		s.ctl.SetSize(domain.Size(arg))
	case "quality":
		if !domain.Quality(arg).Valid() {
			s.println(view.Failure("quality must be one of: standard, hd"))
			break
		}
		s.ctl.SetQuality(domain.Quality(arg))
	case "style":
		if !domain.Style(arg).Valid() {
			s.println(view.Failure("style must be one of: vivid, natural"))
			break
		}
		s.ctl.SetStyle(domain.Style(arg))
	case "example":
		n, err := strconv.Atoi(arg)
		if err == nil {
			err = s.ctl.SelectExample(n)
		}
		if err != nil {
			s.println(view.Failure(fmt.Sprintf("example must be 0-%d", len(domain.PromptExamples)-1)))
			break
		}
		s.println(view.State(s.ctl.State()))
	case "examples":
		s.println(view.Examples())

	case "generate", "g":
		s.generate(ctx)
	case "enhance", "e":
		if !s.ctl.CanEnhance() {
			s.println(view.Failure("enter a prompt first"))
			break
		}
		out, err := s.ctl.Enhance(ctx)
		if err != nil {
			s.println(view.Failure(err.Error()))
			break
		}
		s.println(view.Success(view.NoticeEnhanced))
		s.println(out)
	case "vary", "v":
		if err := s.ctl.Vary(); err != nil {
			s.println(view.Failure(view.NoticeNoResult))
			break
		}
		s.println(view.Success(view.NoticeVary))
		s.println(view.State(s.ctl.State()))
	case "reset":
		s.ctl.Reset()
		s.println(view.State(s.ctl.State()))

	case "download", "d":
		s.download(ctx, arg)
	case "share":
		if r, ok := s.target(arg); ok {
			s.copy(r.URL, view.NoticeURLCopied, view.NoticeURLCopyFail)
		}
	case "copy-prompt":
		if r, ok := s.target(arg); ok {
			s.copy(r.RevisedPrompt, view.NoticePromptCopied, view.NoticePromptCopyErr)
		}

	case "history", "h":
		s.println(view.History(s.store.Items(), s.store.Loaded(), s.now()))
	case "select":
		it, err := resolveItem(s.store.Items(), arg)
		if err != nil {
			s.println(view.Failure(err.Error()))
			break
		}
		s.ctl.SelectHistory(it)
		s.println(view.State(s.ctl.State()))
	case "rm":
		it, err := resolveItem(s.store.Items(), arg)
		if err != nil {
			s.println(view.Failure(err.Error()))
			break
		}
		s.store.Remove(ctx, it.ID)
		s.println(view.Success(view.NoticeRemoved))
		s.println(view.History(s.store.Items(), true, s.now()))
	case "clear":
		s.store.Clear(ctx)
		s.println(view.Success(view.NoticeCleared))

	default:
		s.println(view.Failure("unknown command " + strconv.Quote(cmd) + "; try help"))
	}
	return false
}

func (s *studio) generate(ctx context.Context) {
	if !s.ctl.CanSubmit() {
		s.println(view.Failure("enter a prompt first"))
		return
	}
	_, err := s.ctl.Submit(ctx)
	s.println(view.State(s.ctl.State()))
	if err != nil {
		s.println(view.Failure(view.NoticeGenerateFail))
		return
	}
	s.println(view.Success(view.NoticeGenerated))
	if _, err := s.ctl.Record(ctx, s.store); err == nil {
		s.println(view.History(s.store.Items(), true, s.now()))
	}
}

// download saves the current result, or a history item when the first
// argument names one (an index, or an id prefix that matches). The rest is
// the target directory.
func (s *studio) download(ctx context.Context, arg string) {
	args := strings.Fields(arg)
	ref := ""
	if len(args) > 0 && s.namesItem(args[0]) {
		ref, args = args[0], args[1:]
	}
	r, ok := s.target(ref)
	if !ok {
		return
	}
	dir := s.dir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}
	path, err := s.dl.Download(ctx, r.URL, dir, s.now())
	if err != nil {
		s.println(view.Failure(view.NoticeDownloadFail))
		return
	}
	s.println(view.Success(view.NoticeDownloaded + " " + path))
}

// namesItem reports whether ref is an index or matches a history id.
func (s *studio) namesItem(ref string) bool {
	if _, err := strconv.Atoi(ref); err == nil {
		return true
	}
	_, err := resolveItem(s.store.Items(), ref)
	return err == nil
}

// target is the history item named by ref, or the current result when ref
// is empty. Failures are printed.
func (s *studio) target(ref string) (domain.GenerationResult, bool) {
	if ref == "" {
		r := s.ctl.State().Result
		if r == nil {
			s.println(view.Failure(view.NoticeNoResult))
			return domain.GenerationResult{}, false
		}
		return *r, true
	}
	it, err := resolveItem(s.store.Items(), ref)
	if err != nil {
		s.println(view.Failure(err.Error()))
		return domain.GenerationResult{}, false
	}
	return domain.GenerationResult{URL: it.ImageURL, RevisedPrompt: it.RevisedPrompt}, true
}

func (s *studio) copy(text, ok, fail string) {
	if err := copyToClipboard(text); err != nil {
		s.println(view.Failure(fail))
		return
	}
	s.println(view.Success(ok))
}

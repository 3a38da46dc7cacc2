// Package controller holds the generation form and the status of the request
// in flight, and notifies subscribers after every change.
//
// Status cycles Idle -> Loading -> Idle. A failed generation stores a display
// message in Err and keeps the previous Result; the next Submit clears Err.
// At most one generation and one enhancement are expected in flight, but this
// is left to callers (CanSubmit, CanEnhance). Overlapping calls are not
// rejected and the last response to arrive wins.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-image-studio/internal/domain"
)

// Status is the request lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
)

// ErrNoResult is returned by Vary and Record before any successful generation.
var ErrNoResult = errors.New("no generation to use")

// Backend performs generations and enhancements, locally or over HTTP.
type Backend interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
	Enhance(ctx context.Context, prompt string) (string, error)
}

// Recorder stores a finished generation. *history.Store satisfies it.
type Recorder interface {
	Add(ctx context.Context, e domain.NewHistoryEntry) domain.HistoryItem
}

// State is a snapshot of the controller.
type State struct {
	Prompt  string
	Size    domain.Size
	Quality domain.Quality
	Style   domain.Style

	Status    Status
	Enhancing bool
	Err       string
	Result    *domain.GenerationResult
}

// Loading reports whether a generation is in flight.
func (s State) Loading() bool { return s.Status == StatusLoading }

func initialState() State {
	return State{
		Size:    domain.DefaultSize,
		Quality: domain.DefaultQuality,
		Style:   domain.DefaultStyle,
		Status:  StatusIdle,
	}
}

// Controller is safe for concurrent use.
type Controller struct {
	backend Backend

	mu        sync.Mutex
	state     State
	produced  domain.GenerationRequest // inputs behind state.Result
	listeners map[int]func(State)
	nextID    int
}

// New returns a controller in the initial state.
func New(b Backend) *Controller {
	return &Controller{backend: b, state: initialState(), listeners: map[int]func(State){}}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}

// Subscribe registers fn to receive the state after each change.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// update applies fn under the lock and then notifies listeners.
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.snapshot()
	fns := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		fns = append(fns, l)
	}
	c.mu.Unlock()

	for _, l := range fns {
		l(snap)
	}
}

// SetPrompt, SetSize, SetQuality and SetStyle edit the form and notify
// subscribers. Values are checked on submit, not here.
func (c *Controller) SetPrompt(p string)          { c.update(func(s *State) { s.Prompt = p }) }
func (c *Controller) SetSize(v domain.Size)       { c.update(func(s *State) { s.Size = v }) }
func (c *Controller) SetQuality(v domain.Quality) { c.update(func(s *State) { s.Quality = v }) }
func (c *Controller) SetStyle(v domain.Style)     { c.update(func(s *State) { s.Style = v }) }

// CanSubmit reports whether the trigger should be enabled.
func (c *Controller) CanSubmit() bool {
	s := c.State()
	return !s.Loading() && !s.Enhancing && strings.TrimSpace(s.Prompt) != ""
}

// CanEnhance has the same rule as CanSubmit.
func (c *Controller) CanEnhance() bool { return c.CanSubmit() }

// Submit generates an image from the current inputs. It always returns to
// Idle; on failure Err holds the message and Result is left untouched.
func (c *Controller) Submit(ctx context.Context) (domain.GenerationResult, error) {
	var req domain.GenerationRequest
	c.update(func(s *State) {
		req = domain.GenerationRequest{Prompt: s.Prompt, Size: s.Size, Quality: s.Quality, Style: s.Style}
		s.Status = StatusLoading
		s.Err = ""
	})

	res, err := c.backend.Generate(ctx, req)
	if err != nil {
		log.Debug().Err(err).Msg("generation failed")
		c.update(func(s *State) {
			s.Status = StatusIdle
			s.Err = err.Error()
		})
		return domain.GenerationResult{}, err
	}

	c.update(func(s *State) {
		s.Status = StatusIdle
		s.Result = &res
		c.produced = req
	})
	return res, nil
}

// Enhance replaces the prompt with its enhanced rewrite. Failures leave the
// prompt as it was and are returned, not stored.
func (c *Controller) Enhance(ctx context.Context) (string, error) {
	var prompt string
	c.update(func(s *State) {
		prompt = s.Prompt
		s.Enhancing = true
	})

	out, err := c.backend.Enhance(ctx, prompt)
	c.update(func(s *State) {
		s.Enhancing = false
		if err == nil {
			s.Prompt = out
		}
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Vary loads the last revised prompt into the prompt field.
func (c *Controller) Vary() error {
	var err error
	c.update(func(s *State) {
		if s.Result == nil || s.Result.RevisedPrompt == "" {
			err = ErrNoResult
			return
		}
		s.Prompt = s.Result.RevisedPrompt
	})
	return err
}

// SelectExample sets the prompt to domain.PromptExamples[i].
func (c *Controller) SelectExample(i int) error {
	if i < 0 || i >= len(domain.PromptExamples) {
		return fmt.Errorf("example %d out of range [0,%d)", i, len(domain.PromptExamples))
	}
	c.SetPrompt(domain.PromptExamples[i])
	return nil
}

// SelectHistory restores the prompt and settings of a past generation.
func (c *Controller) SelectHistory(it domain.HistoryItem) {
	c.update(func(s *State) {
		s.Prompt = it.Prompt
		s.Size = it.Size
		s.Quality = it.Quality
		s.Style = it.Style
	})
}

// Reset returns to the initial state.
func (c *Controller) Reset() {
	c.update(func(s *State) {
		*s = initialState()
		c.produced = domain.GenerationRequest{}
	})
}

// Record adds the current result to r, using the inputs it was generated
// from rather than whatever the form holds now.
func (c *Controller) Record(ctx context.Context, r Recorder) (domain.HistoryItem, error) {
	c.mu.Lock()
	if c.state.Result == nil {
		c.mu.Unlock()
		return domain.HistoryItem{}, ErrNoResult
	}
	e := domain.EntryFrom(c.produced, *c.state.Result)
	c.mu.Unlock()
	return r.Add(ctx, e), nil
}

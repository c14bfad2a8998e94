// Package pagination walks a lazy sequence of pre-rendered pages and renders
// the navigation controls that move over it.
package pagination

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrExhausted is returned by sources once no more pages will be produced.
var ErrExhausted = errors.New("pagination: source exhausted")

// Page is one pre-rendered unit of paginated content.
type Page struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
	Files   []*discordgo.File
}

// TextPage builds a text-only page.
func TextPage(content string) Page {
	return Page{Content: content}
}

// EmbedPage builds an embed-only page.
func EmbedPage(embeds ...*discordgo.MessageEmbed) Page {
	return Page{Embeds: embeds}
}

// ResponseData renders the page as interaction response data.
func (p Page) ResponseData(rows []discordgo.MessageComponent) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    p.Content,
		Embeds:     p.Embeds,
		Files:      p.Files,
		Components: rows,
	}
}

// MessageSend renders the page as a channel message.
func (p Page) MessageSend(rows []discordgo.MessageComponent) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    p.Content,
		Embeds:     p.Embeds,
		Files:      p.Files,
		Components: rows,
	}
}

// MessageEdit renders the page as an edit of an existing channel message.
func (p Page) MessageEdit(channelID, messageID string) *discordgo.MessageEdit {
	content := p.Content
	embeds := p.Embeds
	return &discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Content: &content,
		Embeds:  &embeds,
	}
}

// Source produces pages one at a time, in order. Next returns ErrExhausted
// once the sequence ends; asynchronous sources block until a page is ready or
// ctx is done.
type Source interface {
	Next(ctx context.Context) (Page, error)
}

type sliceSource struct {
	pages []Page
	i     int
}

func (s *sliceSource) Next(context.Context) (Page, error) {
	if s.i >= len(s.pages) {
		return Page{}, ErrExhausted
	}
	p := s.pages[s.i]
	s.i++
	return p, nil
}

// FromSlice returns a finite source over pre-built pages.
func FromSlice(pages ...Page) Source {
	return &sliceSource{pages: pages}
}

type funcSource func(context.Context) (Page, error)

func (f funcSource) Next(ctx context.Context) (Page, error) { return f(ctx) }

// FromFunc adapts a pull function into a source. The function should return
// ErrExhausted when done.
func FromFunc(fn func(context.Context) (Page, error)) Source {
	return funcSource(fn)
}

type chanSource struct {
	ch <-chan Page
}

func (s *chanSource) Next(ctx context.Context) (Page, error) {
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	case p, ok := <-s.ch:
		if !ok {
			return Page{}, ErrExhausted
		}
		return p, nil
	}
}

// FromChan adapts a channel into an asynchronous source: pulls block until a
// page is sent or the channel closes.
func FromChan(ch <-chan Page) Source {
	return &chanSource{ch: ch}
}

type unboundedSource struct {
	Source
}

func (unboundedSource) isUnbounded() {}

// Unbounded marks a source as never-exhausting, which disables
// jump-to-last navigation on paginators built from it.
func Unbounded(src Source) Source {
	return unboundedSource{Source: src}
}

func isUnbounded(src Source) bool {
	_, ok := src.(interface{ isUnbounded() })
	return ok
}

// LineOption tunes FromLines.
type LineOption func(*lineConfig)

type lineConfig struct {
	charLimit int
	lineLimit int
	wrapper   string
}

// WithCharLimit caps characters per page, default 2000.
func WithCharLimit(n int) LineOption {
	return func(c *lineConfig) { c.charLimit = n }
}

// WithLineLimit caps lines per page, default 25.
func WithLineLimit(n int) LineOption {
	return func(c *lineConfig) { c.lineLimit = n }
}

// WithWrapper wraps each page's text, e.g. "```go\n%s\n```". It must contain
// exactly one %s verb.
func WithWrapper(wrapper string) LineOption {
	return func(c *lineConfig) { c.wrapper = wrapper }
}

// FromLines splits lines of text into text pages under the configured
// character and line limits, keeping whole lines together where possible.
func FromLines(lines []string, opts ...LineOption) Source {
	cfg := lineConfig{charLimit: 2000, lineLimit: 25}
	for _, opt := range opts {
		opt(&cfg)
	}
	charLimit := cfg.charLimit
	if cfg.wrapper != "" {
		charLimit -= len(cfg.wrapper) - 2
	}
	// Un wrapper más caro que el límite dejaría un presupuesto negativo.
	if charLimit < 1 {
		charLimit = 1
	}

	var pages []Page
	var page []string
	size := 0
	flush := func() {
		if len(page) == 0 {
			return
		}
		text := strings.Join(page, "\n")
		if cfg.wrapper != "" {
			text = strings.Replace(cfg.wrapper, "%s", text, 1)
		}
		pages = append(pages, TextPage(text))
		page = page[:0]
		size = 0
	}

	for _, line := range lines {
		if len(line) > charLimit {
			// A single oversized line gets chopped into its own pages.
			flush()
			for len(line) > charLimit {
				chunk := line[:charLimit]
				line = line[charLimit:]
				text := chunk
				if cfg.wrapper != "" {
					text = strings.Replace(cfg.wrapper, "%s", chunk, 1)
				}
				pages = append(pages, TextPage(text))
			}
			if line != "" {
				page = append(page, line)
				size = len(line)
			}
			continue
		}
		if len(page) >= cfg.lineLimit || (len(page) > 0 && size+len(line)+1 > charLimit) {
			flush()
		}
		page = append(page, line)
		size += len(line) + 1
	}
	flush()
	return FromSlice(pages...)
}

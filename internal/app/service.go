// Package app composes the query-handling pipeline: queue admission,
// upstream call, extraction, normalization, rendering and dispatch.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cardbot/internal/adapters/dispatch"
	"cardbot/internal/adapters/mq/queue"
	"cardbot/internal/domain/extract"
	"cardbot/internal/domain/model"
	"cardbot/internal/domain/normalize"
	"cardbot/internal/domain/render"
	"cardbot/pkg/logger"
	"cardbot/pkg/metrics"
)

// Command identifies which pipeline endpoint answers a query.
type Command string

// Supported commands.
const (
	CommandCard      Command = "card"
	CommandArchetype Command = "archetype"
	CommandCreature  Command = "creature"
	CommandTierlist  Command = "tierlist"
)

// QueryRequest is one user query handed to the service.
type QueryRequest struct {
	Command     Command
	UserID      string
	DisplayName string
	Query       string
}

// Caller posts a query to a pipeline endpoint and returns the decoded
// response envelope.
type Caller interface {
	Call(ctx context.Context, endpoint, userID, displayName, query string) (any, error)
}

// Admitter serializes query execution. Satisfied by queue.Queue.
type Admitter interface {
	Do(ctx context.Context, userID string, task queue.Task) (any, error)
}

// Service handles user queries end to end.
type Service struct {
	queue     Admitter
	caller    Caller
	endpoints map[Command]string
	log       logger.Logger
}

// New builds a Service.
func New(q Admitter, caller Caller, opts ...Option) (*Service, error) {
	if q == nil {
		return nil, errors.New("queue is required")
	}
	if caller == nil {
		return nil, errors.New("caller is required")
	}
	s := &Service{
		queue:     q,
		caller:    caller,
		endpoints: make(map[Command]string),
		log:       logger.Named("app"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleQuery runs one query and delivers the reply through sink. The
// placeholder is always resolved: success paths edit it with content,
// failure paths edit it with a short human-readable message. The
// returned error reports delivery problems only; upstream and admission
// failures are consumed and turned into reply text.
func (s *Service) HandleQuery(ctx context.Context, req QueryRequest, sink dispatch.Sink) error {
	d, err := dispatch.New(sink)
	if err != nil {
		return err
	}

	if strings.TrimSpace(req.Query) == "" {
		metrics.RecordQuery(string(req.Command), "empty_query")
		return d.Text(ctx, msgGeneric)
	}
	endpoint, ok := s.endpoints[req.Command]
	if !ok || endpoint == "" {
		metrics.RecordQuery(string(req.Command), "unknown_command")
		s.log.Warn(ctx, "no endpoint for command", logger.String("command", string(req.Command)))
		return d.Text(ctx, msgGeneric)
	}

	envelope, err := s.queue.Do(ctx, req.UserID, func(taskCtx context.Context) (any, error) {
		return s.caller.Call(taskCtx, endpoint, req.UserID, req.DisplayName, req.Query)
	})
	if err != nil {
		return s.replyFailure(ctx, d, req, err)
	}

	metrics.RecordQuery(string(req.Command), "ok")
	if req.Command == CommandCreature {
		return s.replyCreature(ctx, d, envelope)
	}
	return s.replyCard(ctx, d, envelope)
}

// replyFailure maps an admission or upstream error to a short human
// message.
func (s *Service) replyFailure(ctx context.Context, d *dispatch.Dispatcher, req QueryRequest, err error) error {
	var rle *queue.RateLimitedError
	switch {
	case errors.As(err, &rle):
		metrics.RecordQuery(string(req.Command), "rate_limited")
		wait := rle.RetryAfter.Round(time.Second)
		if wait < time.Second {
			wait = time.Second
		}
		return d.Text(ctx, fmt.Sprintf("You're sending requests too fast. Please try again in %s.", wait))
	case errors.Is(err, queue.ErrBusy):
		metrics.RecordQuery(string(req.Command), "busy")
		return d.Text(ctx, msgBusy)
	case errors.Is(err, queue.ErrTimeout):
		metrics.RecordQuery(string(req.Command), "timeout")
		return d.Text(ctx, msgTimeout)
	default:
		metrics.RecordQuery(string(req.Command), "error")
		metrics.RecordErrorByComponent("app", "upstream")
		s.log.Error(ctx, "query failed", logger.String("command", string(req.Command)), logger.Error(err))
		return d.Text(ctx, msgGeneric)
	}
}

// replyCard renders a trading-card style response: group listings and
// multi-card batches, a single card with long-text overflow, and
// plain-text or tabular fallbacks.
func (s *Service) replyCard(ctx context.Context, d *dispatch.Dispatcher, envelope any) error {
	if rows, grouped := extract.TableRecords(envelope); grouped {
		metrics.RecordItemsExtracted(len(rows))
		return d.Cards(ctx, "", renderAll(rows, render.WithGroupListing(true)))
	}

	records := extract.Extract(envelope)
	switch {
	case len(records) > 1:
		metrics.RecordItemsExtracted(len(records))
		return d.Cards(ctx, "", renderAll(records))
	case len(records) == 1:
		metrics.RecordItemsExtracted(1)
		rec := records[0]
		item := normalize.Card(rec)
		card := render.Card(item, rec)
		if err := d.Cards(ctx, "", []model.VisualCard{card}); err != nil {
			return err
		}
		// Effect text too long for any card placement rides behind the
		// card as plain-text chunks.
		if utf8.RuneCountInString(item.LongText) > 2*model.DescriptionLimit {
			return d.FollowUpText(ctx, item.LongText)
		}
		return nil
	}

	metrics.RecordEmptyExtraction()
	text := extract.FindMessageText(envelope)
	if text != "" {
		if extract.LooksTabular(text) {
			if rows := extract.ParseMarkdownBlocks(text); len(rows) > 0 {
				metrics.RecordItemsExtracted(len(rows))
				return d.Cards(ctx, "", renderAll(rows))
			}
		}
		return d.Text(ctx, text)
	}

	// Last resort: show the raw envelope when it is small enough to be
	// useful, otherwise admit defeat.
	if pretty := prettyJSON(envelope); pretty != "" {
		return d.Text(ctx, "```json\n"+pretty+"\n```")
	}
	return d.Text(ctx, msgNotFound)
}

// replyCreature renders a creature-dex response as a single card,
// merging markdown table fields from the message text into the first
// extracted record.
func (s *Service) replyCreature(ctx context.Context, d *dispatch.Dispatcher, envelope any) error {
	rec := extract.First(envelope)
	text := extract.FindMessageText(envelope)

	if blocks := extract.ParseMarkdownBlocks(text); len(blocks) > 0 {
		if rec == nil {
			rec = blocks[0]
		} else {
			rec = mergeRecords(rec, blocks[0])
		}
	}
	if rec == nil {
		metrics.RecordEmptyExtraction()
		if text != "" {
			return d.Text(ctx, text)
		}
		return d.Text(ctx, msgNotFound)
	}

	item := normalize.Creature(rec)
	if !item.Renderable() {
		metrics.RecordEmptyExtraction()
		if text != "" {
			return d.Text(ctx, text)
		}
		return d.Text(ctx, msgNotFound)
	}

	metrics.RecordItemsExtracted(1)
	card := render.Card(item, rec)
	return d.Cards(ctx, "", []model.VisualCard{card})
}

// renderAll normalizes and renders each record as a card.
func renderAll(records []extract.Record, opts ...render.Option) []model.VisualCard {
	cards := make([]model.VisualCard, 0, len(records))
	for _, rec := range records {
		cards = append(cards, render.Card(normalize.Card(rec), rec, opts...))
	}
	return cards
}

// mergeRecords overlays extra keys onto base without overwriting.
func mergeRecords(base, extra extract.Record) extract.Record {
	merged := make(extract.Record, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return merged
}

// prettyJSON renders the envelope indented when it fits one text chunk.
func prettyJSON(envelope any) string {
	b, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return ""
	}
	s := string(b)
	if s == "null" || s == "{}" || utf8.RuneCountInString(s) > model.TextChunkSize-20 {
		return ""
	}
	return s
}

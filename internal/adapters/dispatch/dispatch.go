// Package dispatch delivers rendered replies to the chat platform. A
// query's reply always starts by editing the placeholder message the
// platform showed while the request was queued; overflow goes out as
// follow-up messages.
package dispatch

import (
	"context"
	"fmt"

	"cardbot/internal/domain/model"
	"cardbot/pkg/logger"
	"cardbot/pkg/metrics"
)

// Payload is one outbound message: free text, visual cards, or both.
type Payload struct {
	Text  string
	Cards []model.VisualCard
}

// Sink abstracts the platform connection. EditPlaceholder replaces the
// deferred placeholder message; SendFollowUp appends a new message to
// the same interaction.
type Sink interface {
	EditPlaceholder(ctx context.Context, p Payload) error
	SendFollowUp(ctx context.Context, p Payload) error
}

// Dispatcher batches cards and chunks long text onto a Sink.
type Dispatcher struct {
	sink Sink
	log  logger.Logger
}

// New builds a Dispatcher bound to a reply sink.
func New(sink Sink, opts ...Option) (*Dispatcher, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	d := &Dispatcher{
		sink: sink,
		log:  logger.Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Cards sends rendered cards with optional intro text on the first
// message. Cards go out in batches of at most MaxCardsPerBatch; the
// first batch edits the placeholder, the rest are follow-ups. Batches
// are sent in order and delivery stops at the first sink error.
func (d *Dispatcher) Cards(ctx context.Context, intro string, cards []model.VisualCard) error {
	if len(cards) == 0 {
		return ErrNothingToSend
	}

	for i := 0; i < len(cards); i += model.MaxCardsPerBatch {
		end := i + model.MaxCardsPerBatch
		if end > len(cards) {
			end = len(cards)
		}
		p := Payload{Cards: cards[i:end]}
		if i == 0 {
			p.Text = intro
			if err := d.sink.EditPlaceholder(ctx, p); err != nil {
				return fmt.Errorf("editing placeholder with %d cards: %w", len(p.Cards), err)
			}
		} else if err := d.sink.SendFollowUp(ctx, p); err != nil {
			return fmt.Errorf("sending follow-up batch of %d cards: %w", len(p.Cards), err)
		}
		metrics.RecordBatchDispatched()
	}

	d.log.Debug(ctx, "dispatched cards", logger.Int("count", len(cards)))
	return nil
}

// Text sends a plain-text reply. Text within the platform limit edits
// the placeholder directly; longer text edits the placeholder with a
// notice and streams the full content as follow-up chunks.
func (d *Dispatcher) Text(ctx context.Context, text string) error {
	if text == "" {
		return ErrNothingToSend
	}

	chunks := splitChunks(text, model.TextChunkSize)
	if len(chunks) == 1 {
		if err := d.sink.EditPlaceholder(ctx, Payload{Text: chunks[0]}); err != nil {
			return fmt.Errorf("editing placeholder with text: %w", err)
		}
		metrics.RecordTextChunk()
		return nil
	}

	notice := fmt.Sprintf("Response is too long for one message, sending %d parts:", len(chunks))
	if err := d.sink.EditPlaceholder(ctx, Payload{Text: notice}); err != nil {
		return fmt.Errorf("editing placeholder with chunk notice: %w", err)
	}
	for i, chunk := range chunks {
		if err := d.sink.SendFollowUp(ctx, Payload{Text: chunk}); err != nil {
			return fmt.Errorf("sending text chunk %d/%d: %w", i+1, len(chunks), err)
		}
		metrics.RecordTextChunk()
	}

	d.log.Debug(ctx, "dispatched text", logger.Int("chunks", len(chunks)))
	return nil
}

// FollowUpText streams text as follow-up chunks without touching the
// placeholder. Used when a card reply already claimed the placeholder
// and overflow text must ride behind it.
func (d *Dispatcher) FollowUpText(ctx context.Context, text string) error {
	if text == "" {
		return ErrNothingToSend
	}
	chunks := splitChunks(text, model.TextChunkSize)
	for i, chunk := range chunks {
		if err := d.sink.SendFollowUp(ctx, Payload{Text: chunk}); err != nil {
			return fmt.Errorf("sending text chunk %d/%d: %w", i+1, len(chunks), err)
		}
		metrics.RecordTextChunk()
	}
	return nil
}

// splitChunks cuts text into rune-bounded chunks of at most size
// characters. Splitting is position-based, not word-aware.
func splitChunks(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

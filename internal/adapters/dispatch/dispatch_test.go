package dispatch

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"cardbot/internal/domain/model"
	"cardbot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeSink struct {
	edits     []Payload
	followUps []Payload
	failEdit  error
}

func (s *fakeSink) EditPlaceholder(_ context.Context, p Payload) error {
	if s.failEdit != nil {
		return s.failEdit
	}
	s.edits = append(s.edits, p)
	return nil
}

func (s *fakeSink) SendFollowUp(_ context.Context, p Payload) error {
	s.followUps = append(s.followUps, p)
	return nil
}

func makeCards(n int) []model.VisualCard {
	cards := make([]model.VisualCard, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, model.VisualCard{Title: "Card"})
	}
	return cards
}

func TestCardsBatching(t *testing.T) {
	tests := []struct {
		name       string
		cards      int
		wantEdit   int
		wantFollow []int
	}{
		{name: "single card", cards: 1, wantEdit: 1},
		{name: "full batch", cards: 10, wantEdit: 10},
		{name: "eleven cards", cards: 11, wantEdit: 10, wantFollow: []int{1}},
		{name: "twenty five cards", cards: 25, wantEdit: 10, wantFollow: []int{10, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			d, err := New(sink)
			if err != nil {
				t.Fatalf("new: %v", err)
			}

			if err := d.Cards(context.Background(), "intro", makeCards(tt.cards)); err != nil {
				t.Fatalf("cards: %v", err)
			}

			if len(sink.edits) != 1 {
				t.Fatalf("edits = %d, want 1", len(sink.edits))
			}
			if got := len(sink.edits[0].Cards); got != tt.wantEdit {
				t.Errorf("placeholder batch = %d cards, want %d", got, tt.wantEdit)
			}
			if sink.edits[0].Text != "intro" {
				t.Errorf("intro = %q", sink.edits[0].Text)
			}
			if len(sink.followUps) != len(tt.wantFollow) {
				t.Fatalf("follow-ups = %d, want %d", len(sink.followUps), len(tt.wantFollow))
			}
			for i, want := range tt.wantFollow {
				if got := len(sink.followUps[i].Cards); got != want {
					t.Errorf("follow-up %d = %d cards, want %d", i, got, want)
				}
			}
		})
	}
}

func TestCardsEmpty(t *testing.T) {
	d, _ := New(&fakeSink{})
	if err := d.Cards(context.Background(), "", nil); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend, got %v", err)
	}
}

func TestTextShort(t *testing.T) {
	sink := &fakeSink{}
	d, _ := New(sink)

	if err := d.Text(context.Background(), "short reply"); err != nil {
		t.Fatalf("text: %v", err)
	}
	if len(sink.edits) != 1 || sink.edits[0].Text != "short reply" {
		t.Errorf("edits = %+v", sink.edits)
	}
	if len(sink.followUps) != 0 {
		t.Errorf("unexpected follow-ups")
	}
}

func TestTextChunked(t *testing.T) {
	sink := &fakeSink{}
	d, _ := New(sink)

	long := strings.Repeat("x", model.TextChunkSize*2+10)
	if err := d.Text(context.Background(), long); err != nil {
		t.Fatalf("text: %v", err)
	}

	if len(sink.edits) != 1 || !strings.Contains(sink.edits[0].Text, "3 parts") {
		t.Errorf("notice = %+v", sink.edits)
	}
	if len(sink.followUps) != 3 {
		t.Fatalf("chunks = %d, want 3", len(sink.followUps))
	}
	var rebuilt strings.Builder
	for _, p := range sink.followUps {
		if utf8.RuneCountInString(p.Text) > model.TextChunkSize {
			t.Errorf("chunk exceeds limit: %d", utf8.RuneCountInString(p.Text))
		}
		rebuilt.WriteString(p.Text)
	}
	if rebuilt.String() != long {
		t.Error("chunks do not reassemble the original text")
	}
}

func TestTextMultibyteChunking(t *testing.T) {
	sink := &fakeSink{}
	d, _ := New(sink)

	long := strings.Repeat("ế", model.TextChunkSize+5)
	if err := d.Text(context.Background(), long); err != nil {
		t.Fatalf("text: %v", err)
	}
	if len(sink.followUps) != 2 {
		t.Fatalf("chunks = %d, want 2", len(sink.followUps))
	}
	for _, p := range sink.followUps {
		if !utf8.ValidString(p.Text) {
			t.Error("chunk split inside a rune")
		}
	}
}

func TestFollowUpText(t *testing.T) {
	sink := &fakeSink{}
	d, _ := New(sink)

	if err := d.FollowUpText(context.Background(), "overflow"); err != nil {
		t.Fatalf("follow-up text: %v", err)
	}
	if len(sink.edits) != 0 {
		t.Error("placeholder should be untouched")
	}
	if len(sink.followUps) != 1 || sink.followUps[0].Text != "overflow" {
		t.Errorf("follow-ups = %+v", sink.followUps)
	}
}

func TestEditFailureStopsDelivery(t *testing.T) {
	wantErr := errors.New("gateway down")
	sink := &fakeSink{failEdit: wantErr}
	d, _ := New(sink)

	if err := d.Cards(context.Background(), "", makeCards(15)); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped sink error, got %v", err)
	}
	if len(sink.followUps) != 0 {
		t.Error("delivery continued after placeholder failure")
	}
}

func TestNewRequiresSink(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilSink) {
		t.Fatalf("expected ErrNilSink, got %v", err)
	}
}

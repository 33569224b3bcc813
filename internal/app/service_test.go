package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"cardbot/internal/adapters/dispatch"
	"cardbot/internal/adapters/mq/queue"
	"cardbot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// recordingSink captures everything the service dispatches.
type recordingSink struct {
	edits     []dispatch.Payload
	followUps []dispatch.Payload
}

func (s *recordingSink) EditPlaceholder(_ context.Context, p dispatch.Payload) error {
	s.edits = append(s.edits, p)
	return nil
}

func (s *recordingSink) SendFollowUp(_ context.Context, p dispatch.Payload) error {
	s.followUps = append(s.followUps, p)
	return nil
}

// stubCaller returns a canned envelope or error.
type stubCaller struct {
	envelope any
	err      error
}

func (c *stubCaller) Call(context.Context, string, string, string, string) (any, error) {
	return c.envelope, c.err
}

// directAdmitter runs tasks inline, bypassing queue timing.
type directAdmitter struct {
	err error
}

func (a *directAdmitter) Do(ctx context.Context, _ string, task queue.Task) (any, error) {
	if a.err != nil {
		return nil, a.err
	}
	return task(ctx)
}

func newService(t *testing.T, admitter Admitter, caller Caller) *Service {
	t.Helper()
	s, err := New(admitter, caller,
		WithEndpoint(CommandCard, "https://pipeline.example/card"),
		WithEndpoint(CommandCreature, "https://pipeline.example/creature"),
	)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return s
}

func cardRequest(query string) QueryRequest {
	return QueryRequest{Command: CommandCard, UserID: "u1", DisplayName: "Alice", Query: query}
}

func TestHandleQuery_SingleCard(t *testing.T) {
	envelope := map[string]any{
		"data": []any{
			map[string]any{
				"name":  "Dark Magician",
				"type":  "Normal Monster",
				"atk":   2500.0,
				"def":   2100.0,
				"level": 7.0,
				"race":  "Spellcaster",
				"desc":  "The ultimate wizard in terms of attack and defense.",
				"card_images": []any{
					map[string]any{
						"image_url":       "https://img.example/full.jpg",
						"image_url_small": "https://img.example/small.jpg",
					},
				},
			},
		},
	}
	sink := &recordingSink{}
	s := newService(t, &directAdmitter{}, &stubCaller{envelope: envelope})

	if err := s.HandleQuery(context.Background(), cardRequest("dark magician"), sink); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sink.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(sink.edits))
	}
	cards := sink.edits[0].Cards
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
	if cards[0].Title != "Dark Magician" {
		t.Errorf("title = %q", cards[0].Title)
	}
	if cards[0].ThumbnailURL != "https://img.example/small.jpg" {
		t.Errorf("thumbnail = %q", cards[0].ThumbnailURL)
	}
	if len(sink.followUps) != 0 {
		t.Errorf("unexpected follow-ups: %d", len(sink.followUps))
	}
}

func TestHandleQuery_MultiCardBatches(t *testing.T) {
	var items []any
	for i := 0; i < 11; i++ {
		items = append(items, map[string]any{
			"name": "Card " + string(rune('A'+i)),
			"desc": "some effect",
		})
	}
	envelope := map[string]any{"data": items}
	sink := &recordingSink{}
	s := newService(t, &directAdmitter{}, &stubCaller{envelope: envelope})

	if err := s.HandleQuery(context.Background(), cardRequest("archetype"), sink); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sink.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(sink.edits))
	}
	if got := len(sink.edits[0].Cards); got != 10 {
		t.Errorf("first batch = %d cards, want 10", got)
	}
	if len(sink.followUps) != 1 {
		t.Fatalf("follow-ups = %d, want 1", len(sink.followUps))
	}
	if got := len(sink.followUps[0].Cards); got != 1 {
		t.Errorf("second batch = %d cards, want 1", got)
	}
}

func TestHandleQuery_TextFallback(t *testing.T) {
	envelope := map[string]any{"message": "Nothing structured here, just prose."}
	sink := &recordingSink{}
	s := newService(t, &directAdmitter{}, &stubCaller{envelope: envelope})

	if err := s.HandleQuery(context.Background(), cardRequest("whatever"), sink); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sink.edits) != 1 || sink.edits[0].Text != "Nothing structured here, just prose." {
		t.Fatalf("unexpected edits: %+v", sink.edits)
	}
}

func TestHandleQuery_RateLimitedMessage(t *testing.T) {
	sink := &recordingSink{}
	s := newService(t, &directAdmitter{err: &queue.RateLimitedError{RetryAfter: 30 * time.Second}}, &stubCaller{})

	if err := s.HandleQuery(context.Background(), cardRequest("q"), sink); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sink.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(sink.edits))
	}
	msg := sink.edits[0].Text
	if !strings.Contains(msg, "too fast") || !strings.Contains(msg, "30s") {
		t.Errorf("message = %q", msg)
	}
}

func TestHandleQuery_BusyAndTimeoutMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "busy", err: queue.ErrBusy, want: msgBusy},
		{name: "timeout", err: queue.ErrTimeout, want: msgTimeout},
		{name: "generic", err: errors.New("boom"), want: msgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := newService(t, &directAdmitter{err: tt.err}, &stubCaller{})

			if err := s.HandleQuery(context.Background(), cardRequest("q"), sink); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(sink.edits) != 1 || sink.edits[0].Text != tt.want {
				t.Errorf("edits = %+v, want text %q", sink.edits, tt.want)
			}
		})
	}
}

func TestHandleQuery_CreatureCard(t *testing.T) {
	envelope := map[string]any{
		"outputs": []any{
			map[string]any{
				"outputs": []any{
					map[string]any{
						"results": map[string]any{
							"message": map[string]any{
								"text": "!Pikachu\n| Tên | Pikachu |\n| Loại | Điện |\n| Chiều cao | 0.4 |\n| Cân nặng | 6.0 |\n| Mã số | No. 025 |",
							},
						},
					},
				},
			},
		},
	}
	sink := &recordingSink{}
	s := newService(t, &directAdmitter{}, &stubCaller{envelope: envelope})

	req := QueryRequest{Command: CommandCreature, UserID: "u1", DisplayName: "Alice", Query: "pikachu"}
	if err := s.HandleQuery(context.Background(), req, sink); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sink.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(sink.edits))
	}
	cards := sink.edits[0].Cards
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
	if cards[0].Title != "Pikachu #025" {
		t.Errorf("title = %q", cards[0].Title)
	}

	var height string
	for _, f := range cards[0].Fields {
		if f.Name == "Height" {
			height = f.Value
		}
	}
	if height != "0.4 m" {
		t.Errorf("height = %q", height)
	}
}

func TestHandleQuery_EmptyQuery(t *testing.T) {
	sink := &recordingSink{}
	s := newService(t, &directAdmitter{}, &stubCaller{})

	if err := s.HandleQuery(context.Background(), cardRequest("  "), sink); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.edits) != 1 || sink.edits[0].Text != msgGeneric {
		t.Errorf("edits = %+v", sink.edits)
	}
}

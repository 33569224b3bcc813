// Command probe-upstream sends one query to a pipeline endpoint and
// prints what the extractor makes of the response. Useful when a
// pipeline changes its envelope shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"cardbot/internal/adapters/upstream"
	"cardbot/internal/domain/extract"
	"cardbot/internal/domain/normalize"
	"cardbot/pkg/logger"
)

func main() {
	endpoint := flag.String("endpoint", "", "pipeline endpoint URL")
	query := flag.String("query", "", "query text to send")
	userID := flag.String("user", "probe", "user id to report upstream")
	creature := flag.Bool("creature", false, "normalize as a creature record")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}

	if *endpoint == "" || *query == "" {
		fmt.Fprintln(os.Stderr, "usage: probe-upstream -endpoint URL -query TEXT")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := upstream.New(
		upstream.WithAPIKey(os.Getenv("CARDBOT_API_KEY")),
		upstream.WithTimeout(*timeout),
	)
	envelope, err := client.Call(ctx, *endpoint, *userID, *userID, *query)
	if err != nil {
		fmt.Fprintln(os.Stderr, "call failed:", err)
		os.Exit(1)
	}

	records := extract.Extract(envelope)
	fmt.Printf("extracted %d record(s)\n", len(records))
	for i, rec := range records {
		item := normalize.Card(rec)
		if *creature {
			item = normalize.Creature(rec)
		}
		fmt.Printf("[%d] name=%q types=%v images=%v\n", i, item.Name, item.Types, !item.Images.Empty())
	}

	if len(records) == 0 {
		if text := extract.FindMessageText(envelope); text != "" {
			fmt.Println("message text:")
			fmt.Println(text)
			return
		}
		if b, err := json.MarshalIndent(envelope, "", "  "); err == nil {
			fmt.Println("raw envelope:")
			fmt.Println(string(b))
		}
	}
}

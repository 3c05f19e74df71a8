package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"linehooks/pkg/line"
	"linehooks/pkg/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to app config")
	token := flag.String("token", os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"), "Channel access token")
	flag.Parse()

	log.SetPrefix("linehooks/replybot ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *token == "" {
		log.Fatal("channel access token is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subCfg, err := worker.LoadSubscriberConfig(*configPath)
	if err != nil {
		log.Fatalf("load subscriber config: %v", err)
	}

	sub, err := worker.BuildSubscriber(subCfg)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Printf("subscriber close: %v", err)
		}
	}()

	wk := worker.New(
		worker.WithSubscriber(sub),
		worker.WithTopics("line.message", "line.follow"),
		worker.WithConcurrency(2),
		worker.WithClientProvider(worker.NewLineClientProvider(*token)),
		worker.WithListener(worker.Listener{
			OnStart: func(ctx context.Context) { log.Println("replybot started") },
			OnExit:  func(ctx context.Context) { log.Println("replybot stopped") },
			OnError: func(ctx context.Context, evt *worker.Event, err error) {
				log.Printf("replybot error: %v", err)
			},
		}),
	)

	wk.HandleTopic("line.message", echoMessage)
	wk.HandleTopic("line.follow", greetFollower)

	if err := wk.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

// echoMessage replies to text messages with the same text and to stickers
// with a fixed sticker. Other message types are ignored.
func echoMessage(ctx context.Context, evt *worker.Event) error {
	client, ok := worker.LineClient(evt)
	if !ok {
		log.Printf("line client unavailable")
		return nil
	}
	replyToken := evt.ReplyToken()
	if replyToken == "" {
		return nil
	}

	messageType, _ := stringFromRecord(evt.Record, "message", "type")
	switch messageType {
	case "text":
		text, _ := stringFromRecord(evt.Record, "message", "text")
		if text == "" {
			return nil
		}
		return client.Reply(ctx, replyToken, []line.Message{line.TextMessage(text)})
	case "sticker":
		return client.Reply(ctx, replyToken, []line.Message{line.StickerMessage("11537", "52002734")})
	default:
		return nil
	}
}

// greetFollower looks up the new follower's profile and replies with a
// personalized greeting.
func greetFollower(ctx context.Context, evt *worker.Event) error {
	client, ok := worker.LineClient(evt)
	if !ok {
		log.Printf("line client unavailable")
		return nil
	}
	replyToken := evt.ReplyToken()
	if replyToken == "" {
		return nil
	}

	greeting := "Thanks for adding me!"
	if userID, ok := stringFromRecord(evt.Record, "source", "userId"); ok && userID != "" {
		if profile, err := client.Profile(ctx, userID); err == nil && profile.DisplayName != "" {
			greeting = "Thanks for adding me, " + profile.DisplayName + "!"
		}
	}
	return client.Reply(ctx, replyToken, []line.Message{line.TextMessage(greeting)})
}

func stringFromRecord(root map[string]interface{}, path ...string) (string, bool) {
	current := root
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return "", false
		}
		if i == len(path)-1 {
			str, ok := value.(string)
			return str, ok
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return "", false
		}
		current = next
	}
	return "", false
}

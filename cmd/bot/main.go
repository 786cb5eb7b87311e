// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"masjid-collection/internal/config"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/events"
	"masjid-collection/internal/storage"
	"masjid-collection/internal/storage/backend"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

type bot struct {
	api    *tgbotapi.BotAPI
	store  storage.Store
	chatID int64
}

func main() {
	cfg := config.MustLoad()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if cfg.TelegramToken == "" || cfg.TelegramAdminChatID == 0 {
		slog.Error("TELEGRAM_BOT_TOKEN and TELEGRAM_ADMIN_CHAT_ID are required")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		slog.Error("Failed to init Telegram bot", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot started", "username", api.Self.UserName)

	b := &bot{api: api, store: store, chatID: cfg.TelegramAdminChatID}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.pollCommands(ctx) })
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		g.Go(func() error { return client.Consume(ctx, b.relay) })
	} else {
		slog.Warn("AMQP_URL not set, payment events will not be relayed")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
}

// relay posts an event to the admin chat. Send errors are retried by the consumer.
func (b *bot) relay(ctx context.Context, e events.Event) error {
	return b.send(b.chatID, formatEvent(e))
}

func (b *bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (b *bot) pollCommands(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	text := strings.TrimSpace(fixEncoding(m.Text))
	slog.Info("Received message", "chat_id", m.Chat.ID, "text", text)

	// только чат администраторов
	if m.Chat.ID != b.chatID {
		_ = b.send(m.Chat.ID, "This bot only answers in the mosque admin chat.")
		return
	}

	var reply string
	switch {
	case text == "/start" || text == "/help":
		reply = helpText
	case strings.HasPrefix(text, "/status"):
		var err error
		reply, err = b.status(ctx, text)
		if err != nil {
			reply = "❌ " + err.Error()
		}
	default:
		reply = "Unknown command. Send /help"
	}

	if err := b.send(m.Chat.ID, reply); err != nil {
		slog.Error("Failed to reply", "error", err)
	}
}

func (b *bot) status(ctx context.Context, text string) (string, error) {
	id, year, err := parseStatusCommand(text, time.Now().Year())
	if err != nil {
		return "", err
	}
	h, err := b.store.GetHousehold(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("household %s not found", id)
	}
	if err != nil {
		return "", err
	}
	rows, err := b.store.ListPayments(ctx, id, year)
	if err != nil {
		return "", err
	}
	return formatStatuses(*h, year, rows), nil
}

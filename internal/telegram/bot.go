package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"coffee-machine/internal/config"
	"coffee-machine/internal/machine"
	"coffee-machine/internal/metrics"
	"coffee-machine/internal/session"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SalesStats backs the admin /metrics command.
type SalesStats interface {
	GetDailySales(ctx context.Context, days int) ([]metrics.DailySales, error)
	GetSalesByDrink(ctx context.Context) ([]metrics.DrinkSales, error)
}

// Bot serves one coffee machine per Telegram chat.
type Bot struct {
	api         *tgbotapi.BotAPI
	coordinator *machine.Coordinator
	sessions    *session.Manager
	recorders   []machine.SaleRecorder
	stats       SalesStats
	dataPath    string
	cfg         *config.Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	coordinator *machine.Coordinator,
	sessions *session.Manager,
	stats SalesStats,
	logger *zap.Logger,
	recorders ...machine.SaleRecorder,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	logger.Info("telegram webhook set", zap.String("response", resp.Description))

	b := newBot(cfg, coordinator, sessions, stats, logger, recorders...)
	b.api = api
	return b, nil
}

func newBot(cfg *config.Config, coordinator *machine.Coordinator, sessions *session.Manager, stats SalesStats, logger *zap.Logger, recorders ...machine.SaleRecorder) *Bot {
	return &Bot{
		coordinator: coordinator,
		sessions:    sessions,
		recorders:   recorders,
		stats:       stats,
		dataPath:    filepath.Dir(cfg.DatabasePath),
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Routes serves the webhook and a health check.
func (b *Bot) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhook", b.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("failed to parse update", zap.Error(err))
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if !b.isAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName),
		)
		return
	}

	go b.processMessage(msg)
}

func (b *Bot) isAllowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text := b.reply(ctx, msg.From.ID, msg.Chat.ID, msg.Text)

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = "Markdown"
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("failed to send reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// chatSession maps a chat onto its machine's session id.
func chatSession(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

// reply runs one command and returns the text to send back.
func (b *Bot) reply(ctx context.Context, userID, chatID int64, text string) string {
	cmd, args := parseCommand(text)
	id := chatSession(chatID)

	switch cmd {
	case "start", "help":
		return helpText
	case "menu":
		return formatMenu(b.coordinator.Menu().ListDrinks())
	case "order":
		return b.handleOrder(ctx, id, args)
	case "resources":
		st, err := b.sessions.View(ctx, id)
		if err != nil {
			return b.failure("failed to load session", err)
		}
		return formatResources(st)
	case "refill":
		_, err := b.sessions.Update(ctx, id, func(st machine.State) (machine.State, error) {
			return b.coordinator.Refill(ctx, st)
		})
		if err != nil {
			return b.rejection(err, "failed to refill")
		}
		return "✨ Resources refilled!"
	case "power":
		st, err := b.sessions.Update(ctx, id, func(st machine.State) (machine.State, error) {
			return b.coordinator.TogglePower(ctx, st), nil
		})
		if err != nil {
			return b.failure("failed to toggle power", err)
		}
		if st.PoweredOn {
			return "🔌 Machine turned ON"
		}
		return "🔌 Machine turned OFF"
	case "report":
		st, err := b.sessions.View(ctx, id)
		if err != nil {
			return b.failure("failed to load session", err)
		}
		return formatReport(b.coordinator.Report(st))
	case "metrics":
		if userID != b.cfg.TelegramAdminID {
			return "⛔ *Access Denied*: Admin only."
		}
		return b.handleMetrics(ctx)
	default:
		return "🤔 Unknown command.\n\n" + helpText
	}
}

func (b *Bot) handleOrder(ctx context.Context, id string, args []string) string {
	drink, tendered, err := parseOrder(args)
	if err != nil {
		return "❌ " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error())
	}

	var receipt machine.Receipt
	_, err = b.sessions.Update(ctx, id, func(st machine.State) (machine.State, error) {
		next, rc, err := b.coordinator.Order(ctx, st, machine.OrderRequest{Drink: drink, Tendered: tendered})
		receipt = rc
		return next, err
	})
	if err != nil {
		return b.rejection(err, "failed to process order")
	}

	sale := machine.NewSale(id, receipt, b.now())
	for _, rec := range b.recorders {
		if err := rec.RecordSale(ctx, sale); err != nil {
			b.logger.Error("failed to record sale", zap.String("sale_id", sale.ID), zap.Error(err))
		}
	}

	return fmt.Sprintf("☕ Here is your %s! Enjoy!\nChange: $%s", receipt.Transaction.Drink, receipt.Change.StringFixed(2))
}

func (b *Bot) handleMetrics(ctx context.Context) string {
	daily, err := b.stats.GetDailySales(ctx, 7)
	if err != nil {
		return b.failure("failed to load daily sales", err)
	}
	byDrink, err := b.stats.GetSalesByDrink(ctx)
	if err != nil {
		return b.failure("failed to load sales by drink", err)
	}
	return formatMetrics(daily, byDrink, metrics.GetSysHealth(b.dataPath))
}

// rejection turns a refused operation into its customer message.
func (b *Bot) rejection(err error, op string) string {
	var rej *machine.Rejection
	if errors.As(err, &rej) {
		return "❌ " + rej.Message
	}
	return b.failure(op, err)
}

func (b *Bot) failure(op string, err error) string {
	b.logger.Error(op, zap.Error(err))
	return "❌ Something went wrong. Please try again."
}

const helpText = `*Coffee Machine* ☕
/menu - list drinks
/order <drink> <amount> - buy a drink
/resources - show stock and recent orders
/refill - restock the machine
/power - switch the machine on or off
/report - stock, profit and orders`

// parseCommand splits "/order@MyBot latte 3" into "order" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

func parseOrder(args []string) (string, decimal.Decimal, error) {
	if len(args) != 2 {
		return "", decimal.Zero, errors.New("usage: /order <drink> <amount>")
	}
	amount, err := decimal.NewFromString(strings.TrimPrefix(args[1], "$"))
	if err != nil || amount.IsNegative() {
		return "", decimal.Zero, fmt.Errorf("invalid amount %q", args[1])
	}
	return args[0], amount, nil
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"myworld-planner/internal/forms"
	"myworld-planner/internal/gateway"
	"myworld-planner/internal/repository"
	"myworld-planner/internal/service"
)

// refreshWindow is how close to expiry a token gets refreshed.
const refreshWindow = 15 * time.Minute

// Deps are the collaborators of the bot.
type Deps struct {
	Gateway  *gateway.Gateway
	Chats    *repository.ChatRepository
	Digest   *service.DigestService
	Logger   *zap.Logger
	CacheTTL time.Duration
	// SendRate caps scheduled messages per second; zero means 20.
	SendRate rate.Limit
}

// Bot aggregates Telegram API with per-chat API workspaces.
type Bot struct {
	api      *tgbotapi.BotAPI
	gateway  *gateway.Gateway
	chats    *repository.ChatRepository
	digest   *service.DigestService
	logger   *zap.Logger
	cacheTTL time.Duration
	limiter  *rate.Limiter
	now      func() time.Time

	mu            sync.Mutex
	workspaces    map[int64]*workspace
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
}

func New(api *tgbotapi.BotAPI, deps Deps) (*Bot, error) {
	if api == nil || deps.Gateway == nil || deps.Chats == nil {
		return nil, errors.New("bot: telegram api, gateway and chat repository are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	digest := deps.Digest
	if digest == nil {
		digest = service.NewDigestService()
	}
	sendRate := deps.SendRate
	if sendRate <= 0 {
		sendRate = 20
	}

	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		gateway:       deps.Gateway,
		chats:         deps.Chats,
		digest:        digest,
		logger:        logger,
		cacheTTL:      deps.CacheTTL,
		limiter:       rate.NewLimiter(sendRate, 1),
		now:           time.Now,
		workspaces:    make(map[int64]*workspace),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}

	return ctx.Err()
}

// HandleUpdate processes one update; failures are logged, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	if msg.IsCommand() {
		b.logger.Info("command", zap.Int64("chat_id", chatID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(chatID, "I did not understand that. Try /help for the list of commands.")
}

type commandHandler func(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error

func (b *Bot) protectedCommands() map[string]commandHandler {
	return map[string]commandHandler{
		"logout":        b.handleLogout,
		"me":            b.handleMe,
		"tasks":         b.handleListTasks,
		"task":          b.handleShowTask,
		"newtask":       b.startNewTaskConversation,
		"edit":          b.startEditConversation,
		"done":          b.handleDone,
		"status":        b.handleStatus,
		"delete":        b.handleDelete,
		"instances":     b.handleInstances,
		"dashboard":     b.handleDashboard,
		"plans":         b.handlePlans,
		"subscribe":     b.handleSubscribe,
		"subscriptions": b.handleSubscriptions,
		"analyze":       b.handleAnalyze,
		"aicache":       b.handleAICache,
		"airegen":       b.handleAIRegenerate,
		"aiclear":       b.handleAIClear,
		"password":      b.startPasswordConversation,
		"phone":         b.handlePhone,
		"verifyphone":   b.handleVerifyPhone,
		"verifyemail":   b.handleVerifyEmail,
		"sessions":      b.handleSessions,
		"logoutall":     b.handleLogoutAll,
		"digest":        b.handleDigest,
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	command := msg.Command()

	// A new command abandons any pending dialog.
	b.clearConfirmation(chatID)
	if command != "cancel" {
		b.clearConversation(chatID)
	}

	switch command {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "register":
		return b.startRegisterConversation(ctx, msg)
	case "login":
		return b.startLoginConversation(ctx, msg)
	case "cancel":
		b.clearConversation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	handler, ok := b.protectedCommands()[command]
	if !ok {
		return b.sendText(chatID, "Unknown command. See /help.")
	}

	ws, ok, err := b.authorized(ctx, chatID)
	if err != nil || !ok {
		return err
	}
	return handler(ctx, ws, msg)
}

// authorized loads the chat workspace and tells unauthenticated chats to log in.
func (b *Bot) authorized(ctx context.Context, chatID int64) (*workspace, bool, error) {
	ws, err := b.workspace(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if !ws.store.IsAuthenticated() {
		return ws, false, b.sendText(chatID, "🔒 Please /login first (or /register).")
	}
	return ws, true, nil
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureChat(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	ws, err := b.workspace(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	status := "You are not signed in yet. Use /login or /register."
	if user, ok := ws.store.User(); ok {
		status = fmt.Sprintf("Signed in as <b>%s</b>.", escape(user.Email))
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I am your MyWorld planner.</b>\n%s\n\nSee /help for everything I can do.", escape(name), status)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"<b>Account</b>\n" +
		"• /register, /login, /logout, /me\n" +
		"• /password — change password\n" +
		"• /phone &lt;number&gt;, /verifyphone &lt;code&gt;, /verifyemail &lt;code&gt;\n" +
		"• /sessions — devices signed in, /logoutall\n" +
		"• /digest on|off — periodic task digest\n" +
		"<b>Tasks</b>\n" +
		"• /tasks [STATUS] [from] [to] — list tasks\n" +
		"• /task &lt;id&gt;, /newtask, /edit &lt;id&gt;\n" +
		"• /done &lt;id&gt;, /status &lt;id&gt; &lt;STATUS&gt;, /delete &lt;id&gt;\n" +
		"• /instances &lt;id&gt; [from] [to] [max]\n" +
		"• /dashboard — statistics\n" +
		"<b>Subscriptions</b>\n" +
		"• /plans [moduleId], /subscribe &lt;planId&gt;, /subscriptions\n" +
		"<b>AI</b>\n" +
		"• /analyze &lt;TYPE&gt; &lt;text&gt; — DISCIPLINE, PROGRESS, RECOMMENDATION, SUMMARY\n" +
		"• /aicache &lt;TYPE&gt;, /airegen &lt;id&gt; &lt;TYPE&gt; &lt;text&gt;, /aiclear &lt;TYPE&gt;\n" +
		"• /cancel — stop the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	var handler commandHandler
	switch text {
	case strings.ToLower(menuLabelNewTask):
		handler = b.startNewTaskConversation
	case strings.ToLower(menuLabelTasks):
		handler = b.handleListTasks
	case strings.ToLower(menuLabelDash):
		handler = b.handleDashboard
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}

	ws, ok, err := b.authorized(ctx, msg.Chat.ID)
	if err != nil || !ok {
		return true, err
	}
	return true, handler(ctx, ws, msg)
}

func (b *Bot) ensureChat(ctx context.Context, from *tgbotapi.User) (int64, error) {
	chat, err := b.chats.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
	if err != nil {
		return 0, err
	}
	return chat.TelegramID, nil
}

// SendDigests sends the task digest to every signed-in chat that wants it.
func (b *Bot) SendDigests(ctx context.Context) error {
	chats, err := b.chats.ListDigestRecipients(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	sent := 0
	for _, chat := range chats {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		ws, err := b.workspace(ctx, chat.TelegramID)
		if err != nil {
			b.logger.Warn("digest workspace", zap.Int64("chat_id", chat.TelegramID), zap.Error(err))
			continue
		}
		if !ws.store.IsAuthenticated() {
			continue
		}
		text, err := b.digest.Summary(ctx, ws.svc.Tasks, now)
		if err != nil {
			b.logger.Warn("build digest", zap.Int64("chat_id", chat.TelegramID), zap.Error(err))
			continue
		}
		if err := b.sendText(chat.TelegramID, text); err != nil {
			b.logger.Warn("send digest", zap.Int64("chat_id", chat.TelegramID), zap.Error(err))
			continue
		}
		sent++
	}
	b.logger.Info("digests sent", zap.Int("sent", sent), zap.Int("recipients", len(chats)))
	return nil
}

// RefreshTokens renews tokens that expire within the refresh window.
func (b *Bot) RefreshTokens(ctx context.Context) error {
	chats, err := b.chats.ListAuthenticated(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, chat := range chats {
		ws, err := b.workspace(ctx, chat.TelegramID)
		if err != nil {
			b.logger.Warn("refresh workspace", zap.Int64("chat_id", chat.TelegramID), zap.Error(err))
			continue
		}
		exp, err := ws.store.ExpiresAt()
		if err != nil || exp.Sub(now) > refreshWindow {
			continue
		}
		if err := ws.svc.Account.Refresh(ctx); err != nil {
			b.logger.Warn("refresh token", zap.Int64("chat_id", chat.TelegramID), zap.Error(err))
			continue
		}
		b.logger.Info("token refreshed", zap.Int64("chat_id", chat.TelegramID))
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Warn("delete message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// replyError turns a failure into a chat message. what names the thing being loaded or saved.
func (b *Bot) replyError(chatID int64, what string, err error) error {
	apiErr, ok := gateway.AsError(err)
	if !ok {
		switch {
		case errors.Is(err, service.ErrNotCancellable),
			errors.Is(err, service.ErrEmptyInput),
			errors.Is(err, service.ErrNotSignedIn):
			return b.sendText(chatID, "⚠️ "+escape(capitalize(err.Error())))
		case forms.IsInvalid(err):
			return b.sendText(chatID, "⚠️ "+escape(err.Error()))
		}
		b.logger.Error("unexpected failure", zap.Int64("chat_id", chatID), zap.String("what", what), zap.Error(err))
		return b.sendText(chatID, "❌ Something went wrong. Please try again.")
	}

	switch apiErr.Kind() {
	case gateway.KindUnauthorized:
		if isPublicPath(apiErr.Path) {
			return b.sendText(chatID, "⚠️ "+escape(apiErr.Message))
		}
		return nil
	case gateway.KindNotFound:
		return b.sendText(chatID, fmt.Sprintf("❌ Failed to %s: not found.", what))
	case gateway.KindValidation:
		return b.sendText(chatID, "⚠️ "+escape(apiErr.Message))
	default:
		b.logger.Warn("api failure",
			zap.Int64("chat_id", chatID),
			zap.String("what", what),
			zap.Int("status", apiErr.Status),
			zap.String("correlation_id", apiErr.CorrelationID),
		)
		return b.sendText(chatID, fmt.Sprintf("❌ Failed to %s. %s\n<i>Reference: %s</i>",
			what, escape(apiErr.Message), escape(apiErr.CorrelationID)))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

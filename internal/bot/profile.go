package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (b *Bot) handleLogout(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	if err := ws.svc.Account.Logout(ctx); err != nil {
		return err
	}
	b.logger.Info("signed out", zap.Int64("chat_id", msg.Chat.ID))
	return b.sendText(msg.Chat.ID, "👋 Signed out. Use /login to come back.")
}

func (b *Bot) handleMe(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	profile, err := ws.svc.Account.Me(ctx)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load the profile", err)
	}

	var builder strings.Builder
	builder.WriteString("👤 <b>Profile</b>\n")
	builder.WriteString(fmt.Sprintf("• <b>Email:</b> %s %s\n", escape(profile.Email), verifiedMark(profile.EmailVerified)))
	if profile.Phone != "" {
		builder.WriteString(fmt.Sprintf("• <b>Phone:</b> %s %s\n", escape(profile.Phone), verifiedMark(profile.PhoneVerified)))
	}
	builder.WriteString(fmt.Sprintf("• <b>Role:</b> %s\n", profile.Role))
	if !profile.CreatedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("• <b>Member since:</b> %s\n", formatDate(profile.CreatedAt)))
	}
	if exp, err := ws.store.ExpiresAt(); err == nil {
		builder.WriteString(fmt.Sprintf("• <b>Session until:</b> %s\n", exp.In(b.now().Location()).Format("2006-01-02 15:04")))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func verifiedMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "(not verified)"
}

func (b *Bot) handlePhone(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	phone := strings.TrimSpace(msg.CommandArguments())
	if phone == "" {
		return b.sendText(msg.Chat.ID, "Usage: /phone &lt;number with country code&gt;")
	}
	message, err := ws.svc.Account.SendPhoneOTP(ctx, phone)
	if err != nil {
		return b.replyError(msg.Chat.ID, "send the code", err)
	}

	b.mu.Lock()
	ws.pendingPhone = phone
	b.mu.Unlock()

	if message == "" {
		message = "Code sent."
	}
	return b.sendText(msg.Chat.ID, "📱 "+escape(message)+"\nReply with /verifyphone &lt;code&gt;")
}

func (b *Bot) handleVerifyPhone(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())

	b.mu.Lock()
	phone := ws.pendingPhone
	b.mu.Unlock()

	var code string
	switch len(fields) {
	case 1:
		code = fields[0]
	case 2:
		phone, code = fields[0], fields[1]
	default:
		return b.sendText(msg.Chat.ID, "Usage: /verifyphone [phone] &lt;code&gt;")
	}
	if phone == "" {
		return b.sendText(msg.Chat.ID, "Request a code first with /phone &lt;number&gt;.")
	}

	message, err := ws.svc.Account.VerifyPhone(ctx, phone, code)
	if err != nil {
		return b.replyError(msg.Chat.ID, "verify the phone", err)
	}

	b.mu.Lock()
	ws.pendingPhone = ""
	b.mu.Unlock()

	if message == "" {
		message = "Phone verified."
	}
	return b.sendText(msg.Chat.ID, "✅ "+escape(message))
}

func (b *Bot) handleVerifyEmail(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		return b.sendText(msg.Chat.ID, "Usage: /verifyemail &lt;code&gt;")
	}
	message, err := ws.svc.Account.VerifyEmail(ctx, code)
	if err != nil {
		return b.replyError(msg.Chat.ID, "verify the email", err)
	}
	if message == "" {
		message = "Email verified."
	}
	return b.sendText(msg.Chat.ID, "✅ "+escape(message))
}

func (b *Bot) handleSessions(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	sessions, err := ws.svc.Account.Sessions(ctx)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load sessions", err)
	}
	if len(sessions) == 0 {
		return b.sendText(msg.Chat.ID, "No active sessions.")
	}

	var builder strings.Builder
	builder.WriteString("🔐 <b>Active sessions</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, s := range sessions {
		builder.WriteString(formatDeviceSession(s))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("End #%d · %s", i+1, shortTitle(s.DeviceInfo, 20)), cbEndSessionPrefix+s.SessionID),
		))
	}
	builder.WriteString("\n/logoutall ends every session, this one included.")
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) askEndSession(chatID int64, id string) error {
	req := confirmationRequest{action: actionEndSession, target: id, label: "end the session"}
	return b.askConfirmation(chatID, req, "End this session? The device will be signed out.")
}

func (b *Bot) endSession(ctx context.Context, ws *workspace, chatID int64, id string) error {
	if err := ws.svc.Account.EndSession(ctx, id); err != nil {
		return b.replyError(chatID, "end the session", err)
	}
	return b.sendText(chatID, "✅ Session ended.")
}

func (b *Bot) handleLogoutAll(_ context.Context, _ *workspace, msg *tgbotapi.Message) error {
	req := confirmationRequest{action: actionLogoutAll, label: "sign out everywhere"}
	return b.askConfirmation(msg.Chat.ID, req, "Sign out of <b>every</b> device, including this chat?")
}

func (b *Bot) logoutAll(ctx context.Context, ws *workspace, chatID int64) error {
	if err := ws.svc.Account.EndAllSessions(ctx); err != nil {
		return b.replyError(chatID, "sign out everywhere", err)
	}
	b.logger.Info("signed out everywhere", zap.Int64("chat_id", chatID))
	return b.sendText(chatID, "👋 Signed out on every device. Use /login to come back.")
}

func (b *Bot) handleDigest(ctx context.Context, _ *workspace, msg *tgbotapi.Message) error {
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	chatID := msg.Chat.ID

	switch arg {
	case "":
		chat, err := b.chats.FindByTelegramID(ctx, chatID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		state := "on"
		if chat != nil && !chat.DigestEnabled {
			state = "off"
		}
		return b.sendText(chatID, fmt.Sprintf("📬 The task digest is <b>%s</b>. Use /digest on|off.", state))
	case "on", "off":
		if _, err := b.ensureChat(ctx, msg.From); err != nil {
			return err
		}
		if err := b.chats.SetDigest(ctx, chatID, arg == "on"); err != nil {
			return err
		}
		return b.sendText(chatID, fmt.Sprintf("📬 Task digest turned <b>%s</b>.", arg))
	default:
		return b.sendText(chatID, "Usage: /digest on|off")
	}
}

package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	cbDonePrefix        = "done:"
	cbDeletePrefix      = "del:"
	cbSubscribePrefix   = "sub:"
	cbUnsubscribePrefix = "unsub:"
	cbAIDeletePrefix    = "aidel:"
	cbEndSessionPrefix  = "endsess:"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", zap.Error(err))
	}

	chatID := cb.Message.Chat.ID
	prefix, target, ok := splitCallback(cb.Data)
	if !ok {
		return nil
	}
	b.logger.Info("callback", zap.Int64("chat_id", chatID), zap.String("action", prefix), zap.String("target", target))

	ws, ok, err := b.authorized(ctx, chatID)
	if err != nil || !ok {
		return err
	}
	b.clearConversation(chatID)
	b.clearConfirmation(chatID)

	switch prefix {
	case cbDonePrefix:
		return b.completeTask(ctx, ws, chatID, target)
	case cbDeletePrefix:
		return b.askDeleteConfirmation(ctx, ws, chatID, target)
	case cbSubscribePrefix:
		return b.subscribe(ctx, ws, chatID, target, "", "")
	case cbUnsubscribePrefix:
		return b.askCancelSubscription(ctx, ws, chatID, target)
	case cbAIDeletePrefix:
		return b.askDeleteAICache(chatID, target)
	case cbEndSessionPrefix:
		return b.askEndSession(chatID, target)
	}
	return nil
}

func splitCallback(data string) (string, string, bool) {
	for _, prefix := range []string{
		cbDonePrefix, cbDeletePrefix, cbSubscribePrefix,
		cbUnsubscribePrefix, cbAIDeletePrefix, cbEndSessionPrefix,
	} {
		if target, ok := strings.CutPrefix(data, prefix); ok && target != "" {
			return prefix, target, true
		}
	}
	return "", "", false
}

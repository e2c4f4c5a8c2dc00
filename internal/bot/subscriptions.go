package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"myworld-planner/internal/model"
)

func (b *Bot) handlePlans(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	moduleID := strings.TrimSpace(msg.CommandArguments())

	var (
		plans []model.Plan
		err   error
	)
	if moduleID != "" {
		plans, err = ws.svc.Subscriptions.Plans(ctx, moduleID)
	} else {
		plans, err = ws.svc.Subscriptions.AllPlans(ctx)
	}
	if err != nil {
		return b.replyError(msg.Chat.ID, "load plans", err)
	}
	if len(plans) == 0 {
		return b.sendText(msg.Chat.ID, "No plans are available right now.")
	}

	var builder strings.Builder
	builder.WriteString("💳 <b>Plans</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, plan := range plans {
		builder.WriteString(formatPlan(plan))
		builder.WriteByte('\n')
		label := fmt.Sprintf("Subscribe · %s %s", shortTitle(plan.ModuleName, 18), plan.Duration.Label())
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbSubscribePrefix+plan.ID),
		))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleSubscribe(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 || len(fields) > 3 {
		return b.sendText(msg.Chat.ID, "Usage: /subscribe &lt;planId&gt; [moduleId] [paymentMethod]")
	}
	planID := fields[0]
	var moduleID, payment string
	if len(fields) > 1 {
		moduleID = fields[1]
	}
	if len(fields) > 2 {
		payment = fields[2]
	}
	return b.subscribe(ctx, ws, msg.Chat.ID, planID, moduleID, payment)
}

func (b *Bot) subscribe(ctx context.Context, ws *workspace, chatID int64, planID, moduleID, payment string) error {
	sub, err := ws.svc.Subscriptions.Subscribe(ctx, planID, moduleID, payment)
	if err != nil {
		return b.replyError(chatID, "subscribe", err)
	}
	b.logger.Info("subscribed", zap.Int64("chat_id", chatID), zap.String("subscription_id", sub.ID), zap.String("status", string(sub.Status)))

	text := "✅ <b>Subscription created</b>\n" + formatSubscription(sub)
	if sub.Status == model.SubscriptionPending {
		text += "Payment is pending. Check /subscriptions later."
	}
	return b.sendText(chatID, strings.TrimSpace(text))
}

func (b *Bot) handleSubscriptions(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	subs, err := ws.svc.Subscriptions.List(ctx)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load subscriptions", err)
	}
	if len(subs) == 0 {
		return b.sendText(msg.Chat.ID, "You have no subscriptions. See /plans.")
	}

	var builder strings.Builder
	builder.WriteString("🧾 <b>Subscriptions</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, sub := range subs {
		builder.WriteString(formatSubscription(sub))
		builder.WriteByte('\n')
		if !sub.Cancellable() {
			continue
		}
		name := sub.ModuleName
		if name == "" {
			name = sub.ModuleID
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel "+shortTitle(name, 24), cbUnsubscribePrefix+sub.ID),
		))
	}

	text := strings.TrimSpace(builder.String())
	if len(buttons) == 0 {
		return b.sendText(msg.Chat.ID, text)
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) askCancelSubscription(ctx context.Context, ws *workspace, chatID int64, id string) error {
	sub, err := ws.svc.Subscriptions.Get(ctx, id)
	if err != nil {
		return b.replyError(chatID, "load the subscription", err)
	}
	if !sub.Cancellable() {
		return b.sendText(chatID, fmt.Sprintf("This subscription is %s and cannot be cancelled.", sub.Status))
	}
	name := sub.ModuleName
	if name == "" {
		name = sub.ModuleID
	}
	req := confirmationRequest{action: actionCancelSubscription, target: sub.ID, label: "cancel the " + escape(name) + " subscription"}
	return b.askConfirmation(chatID, req, fmt.Sprintf("Cancel the <b>%s</b> subscription? Remaining quota is lost.", escape(name)))
}

func (b *Bot) cancelSubscription(ctx context.Context, ws *workspace, chatID int64, id string) error {
	if err := ws.svc.Subscriptions.Cancel(ctx, id); err != nil {
		return b.replyError(chatID, "cancel the subscription", err)
	}
	b.logger.Info("subscription cancelled", zap.Int64("chat_id", chatID), zap.String("subscription_id", id))
	return b.sendText(chatID, "✅ Subscription cancelled.")
}

package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"myworld-planner/internal/model"
)

const analysisTypesHint = "DISCIPLINE, PROGRESS, RECOMMENDATION or SUMMARY"

// splitTypeArg splits "TYPE rest..." and parses the analysis type.
func splitTypeArg(args string) (model.AnalysisType, string, bool) {
	args = strings.TrimSpace(args)
	head, rest, _ := strings.Cut(args, " ")
	t, ok := model.ParseAnalysisType(head)
	return t, strings.TrimSpace(rest), ok
}

func (b *Bot) handleAnalyze(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	t, input, ok := splitTypeArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Usage: /analyze &lt;TYPE&gt; &lt;text&gt;\nTYPE is "+analysisTypesHint+".")
	}

	resp, err := ws.svc.AI.Analyze(ctx, t, input)
	if err != nil {
		return b.replyError(msg.Chat.ID, "run the analysis", err)
	}
	b.logger.Info("analysis", zap.Int64("chat_id", msg.Chat.ID), zap.String("type", string(t)), zap.Bool("from_cache", resp.FromCache))
	return b.sendText(msg.Chat.ID, formatAnalysis(t, resp))
}

func formatAnalysis(t model.AnalysisType, resp model.AnalysisResponse) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🧠 <b>%s</b>", t.Label()))
	if resp.FromCache {
		builder.WriteString(" · cached")
	}
	builder.WriteString("\n\n")
	builder.WriteString(escape(resp.Content))
	if tokens := resp.InputTokens + resp.OutputTokens; tokens > 0 {
		builder.WriteString(fmt.Sprintf("\n\n<i>%d tokens</i>", tokens))
	}
	return builder.String()
}

func (b *Bot) handleAICache(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	t, _, ok := splitTypeArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Usage: /aicache &lt;TYPE&gt;\nTYPE is "+analysisTypesHint+".")
	}

	entries, err := ws.svc.AI.Cached(ctx, t)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load cached analyses", err)
	}
	if len(entries) == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No cached %s yet.", strings.ToLower(t.Label())))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗂 <b>Cached %s</b>\n\n", escape(t.Label())))
	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, entry := range entries {
		builder.WriteString(formatCachedAI(entry))
		builder.WriteByte('\n')
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Delete #%d", i+1), cbAIDeletePrefix+entry.ID),
		))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleAIRegenerate(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	id, rest, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	t, input, ok := splitTypeArg(rest)
	if id == "" || !ok {
		return b.sendText(msg.Chat.ID, "Usage: /airegen &lt;id&gt; &lt;TYPE&gt; &lt;text&gt;")
	}

	resp, err := ws.svc.AI.Regenerate(ctx, id, t, input)
	if err != nil {
		return b.replyError(msg.Chat.ID, "regenerate the analysis", err)
	}
	if resp.Type == "" {
		resp.Type = t
	}
	return b.sendText(msg.Chat.ID, formatRegenerated(resp))
}

func formatRegenerated(c model.CachedAIResponse) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🧠 <b>%s</b>", c.Type.Label()))
	if c.IsRegenerated {
		builder.WriteString(" · regenerated")
	}
	builder.WriteString("\n\n")
	builder.WriteString(escape(c.ResponseContent))
	if tokens := c.TotalTokens(); tokens > 0 {
		builder.WriteString(fmt.Sprintf("\n\n<i>%d tokens · $%s</i>", tokens, c.EstimatedCost.StringFixed(4)))
	}
	return builder.String()
}

func (b *Bot) handleAIClear(_ context.Context, _ *workspace, msg *tgbotapi.Message) error {
	t, _, ok := splitTypeArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Usage: /aiclear &lt;TYPE&gt;\nTYPE is "+analysisTypesHint+".")
	}
	req := confirmationRequest{action: actionClearAICache, aiType: t, label: "clear cached " + strings.ToLower(t.Label())}
	return b.askConfirmation(msg.Chat.ID, req, fmt.Sprintf("Clear every cached <b>%s</b> response?", escape(t.Label())))
}

func (b *Bot) askDeleteAICache(chatID int64, id string) error {
	req := confirmationRequest{action: actionDeleteAICache, target: id, label: "delete the cached analysis"}
	return b.askConfirmation(chatID, req, "Delete this cached analysis?")
}

func (b *Bot) deleteAICache(ctx context.Context, ws *workspace, chatID int64, id string) error {
	if err := ws.svc.AI.Delete(ctx, id); err != nil {
		return b.replyError(chatID, "delete the cached analysis", err)
	}
	return b.sendText(chatID, "🗑 Cached analysis deleted.")
}

func (b *Bot) clearAICache(ctx context.Context, ws *workspace, chatID int64, t model.AnalysisType) error {
	if err := ws.svc.AI.Clear(ctx, t); err != nil {
		return b.replyError(chatID, "clear the cache", err)
	}
	b.logger.Info("ai cache cleared", zap.Int64("chat_id", chatID), zap.String("type", string(t)))
	return b.sendText(chatID, fmt.Sprintf("🧹 Cached %s cleared.", strings.ToLower(t.Label())))
}

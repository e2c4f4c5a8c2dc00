package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"myworld-planner/internal/forms"
	"myworld-planner/internal/model"
)

const defaultInstanceCount = 10

func (b *Bot) handleListTasks(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	filter, err := parseTaskFilter(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "⚠️ "+escape(err.Error())+"\nUsage: /tasks [STATUS] [from] [to]")
	}
	b.logger.Info("list tasks", zap.Int64("chat_id", msg.Chat.ID), zap.String("status", string(filter.Status)))
	return b.sendTaskList(ctx, ws, msg.Chat.ID, filter)
}

// parseTaskFilter reads "[STATUS] [from] [to]".
func parseTaskFilter(args string) (model.TaskFilter, error) {
	var filter model.TaskFilter
	fields := strings.Fields(args)
	if len(fields) > 0 {
		if status, ok := model.ParseTaskStatus(fields[0]); ok {
			filter.Status = status
			fields = fields[1:]
		}
	}
	if len(fields) > 2 {
		return filter, fmt.Errorf("unexpected argument %q", fields[2])
	}
	if len(fields) > 0 {
		filter.From = fields[0]
	}
	if len(fields) > 1 {
		filter.To = fields[1]
	}
	if err := forms.Validate(forms.DateRangeForm{From: filter.From, To: filter.To}); err != nil {
		return filter, err
	}
	return filter, nil
}

func (b *Bot) sendTaskList(ctx context.Context, ws *workspace, chatID int64, filter model.TaskFilter) error {
	tasks, err := ws.svc.Tasks.List(ctx, filter)
	if err != nil {
		return b.replyError(chatID, "load tasks", err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No tasks here yet. Add one with /newtask.")
	}

	now := b.now()
	groups := make(map[model.TaskStatus][]model.Task)
	for _, task := range tasks {
		status := task.EffectiveStatus()
		groups[status] = append(groups[status], task)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Your tasks</b>\n")
	builder.WriteString("Use the buttons to complete or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, status := range model.TaskStatuses {
		section := groups[status]
		if len(section) == 0 {
			continue
		}
		sortTasks(section)

		builder.WriteString(fmt.Sprintf("<b>%s</b> (%d)\n", statusLabel(status), len(section)))
		for _, task := range section {
			builder.WriteString(formatTask(task, now))
			if status == model.StatusCompleted || status == model.StatusCancelled {
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Title, 24), cbDonePrefix+task.ID),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbDeletePrefix+task.ID),
			))
		}
		builder.WriteByte('\n')
	}

	text := strings.TrimSpace(builder.String())
	if len(buttons) == 0 {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

// sortTasks orders by due date, undated last, then by title.
func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, c := tasks[i], tasks[j]
		if a.DueDate != c.DueDate {
			if a.DueDate == "" {
				return false
			}
			if c.DueDate == "" {
				return true
			}
			return a.DueDate < c.DueDate
		}
		return strings.ToLower(a.Title) < strings.ToLower(c.Title)
	})
}

func (b *Bot) handleShowTask(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /task &lt;id&gt;")
	}
	task, err := ws.svc.Tasks.Get(ctx, id)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load the task", err)
	}

	text := formatTaskDetail(task, b.now())
	status := task.EffectiveStatus()
	if status == model.StatusCompleted || status == model.StatusCancelled {
		return b.sendText(msg.Chat.ID, text)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Done", cbDonePrefix+task.ID),
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbDeletePrefix+task.ID),
	))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, markup)
}

func (b *Bot) handleDone(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /done &lt;id&gt;")
	}
	return b.completeTask(ctx, ws, msg.Chat.ID, id)
}

func (b *Bot) completeTask(ctx context.Context, ws *workspace, chatID int64, id string) error {
	task, err := ws.svc.Tasks.Complete(ctx, id)
	if err != nil {
		return b.replyError(chatID, "complete the task", err)
	}
	b.logger.Info("task completed", zap.Int64("chat_id", chatID), zap.String("task_id", task.ID))
	return b.sendText(chatID, fmt.Sprintf("✅ Task «%s» is done.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleStatus(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /status &lt;id&gt; &lt;TODO|IN_PROGRESS|COMPLETED|CANCELLED&gt;")
	}
	status, ok := model.ParseTaskStatus(fields[1])
	if !ok {
		return b.sendText(msg.Chat.ID, "Status must be one of TODO, IN_PROGRESS, COMPLETED, CANCELLED.")
	}

	task, err := ws.svc.Tasks.SetStatus(ctx, fields[0], status)
	if err != nil {
		return b.replyError(msg.Chat.ID, "update the task", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s «%s»", statusLabel(task.EffectiveStatus()), escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleDelete(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /delete &lt;id&gt;")
	}
	return b.askDeleteConfirmation(ctx, ws, msg.Chat.ID, id)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, ws *workspace, chatID int64, id string) error {
	task, err := ws.svc.Tasks.Get(ctx, id)
	if err != nil {
		return b.replyError(chatID, "load the task", err)
	}
	title := escape(normalizeTitle(task.Title))
	req := confirmationRequest{action: actionDeleteTask, target: task.ID, label: "delete «" + title + "»"}
	return b.askConfirmation(chatID, req, fmt.Sprintf("Delete task «%s»? This cannot be undone.", title))
}

func (b *Bot) deleteTask(ctx context.Context, ws *workspace, chatID int64, id string) error {
	if err := ws.svc.Tasks.Delete(ctx, id); err != nil {
		return b.replyError(chatID, "delete the task", err)
	}
	b.logger.Info("task deleted", zap.Int64("chat_id", chatID), zap.String("task_id", id))
	if err := b.sendText(chatID, "🗑 Task deleted."); err != nil {
		return err
	}
	return b.sendTaskList(ctx, ws, chatID, model.TaskFilter{})
}

func (b *Bot) handleInstances(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 || len(fields) > 4 {
		return b.sendText(msg.Chat.ID, "Usage: /instances &lt;id&gt; [from] [to] [max]")
	}

	q := model.InstanceQuery{Max: defaultInstanceCount}
	for i, field := range fields[1:] {
		if n, err := strconv.Atoi(field); err == nil && i == len(fields)-2 {
			q.Max = n
			continue
		}
		switch {
		case q.From == "":
			q.From = field
		case q.To == "":
			q.To = field
		}
	}
	if q.Max <= 0 {
		return b.sendText(msg.Chat.ID, "The count must be a positive number.")
	}

	task, err := ws.svc.Tasks.Get(ctx, fields[0])
	if err != nil {
		return b.replyError(msg.Chat.ID, "load the task", err)
	}
	if !task.IsRecurring() {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("«%s» does not repeat.", escape(normalizeTitle(task.Title))))
	}

	dates, err := ws.svc.Tasks.Instances(ctx, task.ID, q)
	if err != nil {
		return b.replyError(msg.Chat.ID, "expand the schedule", err)
	}
	if len(dates) == 0 {
		return b.sendText(msg.Chat.ID, "No occurrences in that range.")
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s <b>%s</b> · <i>%s</i>\n", iconRecurring, escape(normalizeTitle(task.Title)), escape(task.RecurrenceRule)))
	for _, d := range dates {
		builder.WriteString("• " + escape(d) + "\n")
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleDashboard(ctx context.Context, ws *workspace, msg *tgbotapi.Message) error {
	now := b.now()
	stats, err := ws.svc.Tasks.Stats(ctx, now)
	if err != nil {
		return b.replyError(msg.Chat.ID, "load the dashboard", err)
	}

	var builder strings.Builder
	builder.WriteString("📊 <b>Dashboard</b>\n")
	if user, ok := ws.store.User(); ok {
		builder.WriteString(fmt.Sprintf("%s\n", escape(user.Email)))
	}
	builder.WriteString(fmt.Sprintf("• Total: <b>%d</b>\n", stats.Total))
	builder.WriteString(fmt.Sprintf("• %s: %d\n", statusLabel(model.StatusTodo), stats.Todo))
	builder.WriteString(fmt.Sprintf("• %s: %d\n", statusLabel(model.StatusInProgress), stats.InProgress))
	builder.WriteString(fmt.Sprintf("• %s: %d\n", statusLabel(model.StatusCompleted), stats.Completed))
	builder.WriteString(fmt.Sprintf("• %s: %d\n", statusLabel(model.StatusCancelled), stats.Cancelled))
	if stats.Overdue > 0 {
		builder.WriteString(fmt.Sprintf("• %s Overdue: <b>%d</b>\n", iconOverdue, stats.Overdue))
	}
	if stats.Total > 0 {
		builder.WriteString(fmt.Sprintf("Completion: %d%%", stats.Completed*100/stats.Total))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"myworld-planner/internal/model"
)

const (
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconRecurring = "♻️"
	iconDone      = "✅"
	iconCancelled = "🚫"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func statusLabel(s model.TaskStatus) string {
	switch s {
	case model.StatusTodo:
		return "📝 To do"
	case model.StatusInProgress:
		return "🚧 In progress"
	case model.StatusCompleted:
		return "✅ Completed"
	case model.StatusCancelled:
		return "🚫 Cancelled"
	default:
		return string(s)
	}
}

func taskIcon(task model.Task, now time.Time) string {
	switch task.EffectiveStatus() {
	case model.StatusCompleted:
		return iconDone
	case model.StatusCancelled:
		return iconCancelled
	}
	if task.Overdue(now) {
		return iconOverdue
	}
	if due, ok := task.Due(now.Location()); ok && due.Sub(now) <= 48*time.Hour {
		return iconDue
	}
	if task.IsRecurring() {
		return iconRecurring
	}
	return iconDefault
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s", taskIcon(task, now), escape(normalizeTitle(task.Title))))
	if task.Priority != "" && task.Priority != model.PriorityMedium {
		b.WriteString(fmt.Sprintf(" <i>[%s]</i>", task.Priority))
	}
	b.WriteString(fmt.Sprintf("\n   <code>%s</code>\n", escape(task.ID)))
	if task.DueDate != "" {
		if task.Overdue(now) {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s, <b>overdue</b>\n", escape(task.DueDate)))
		} else {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s\n", escape(task.DueDate)))
		}
	}
	if task.IsRecurring() {
		b.WriteString(fmt.Sprintf("   🔄 %s\n", escape(task.RecurrenceRule)))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	return b.String()
}

func formatTaskDetail(task model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b>\n", taskIcon(task, now), escape(normalizeTitle(task.Title))))
	b.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", escape(task.ID)))
	b.WriteString(fmt.Sprintf("• <b>Status:</b> %s\n", statusLabel(task.EffectiveStatus())))
	if task.Priority != "" {
		b.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", task.Priority))
	}
	if task.DueDate != "" {
		b.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", escape(task.DueDate)))
	}
	if task.IsRecurring() {
		b.WriteString(fmt.Sprintf("• <b>Repeats:</b> %s\n", escape(task.RecurrenceRule)))
	}
	if len(task.Tags) > 0 {
		b.WriteString(fmt.Sprintf("• <b>Tags:</b> %s\n", escape(strings.Join(task.Tags, ", "))))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	}
	if !task.CreatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("• <b>Created:</b> %s\n", task.CreatedAt.In(now.Location()).Format("2006-01-02 15:04")))
	}
	return strings.TrimSpace(b.String())
}

func formatPlan(plan model.Plan) string {
	var b strings.Builder
	name := plan.ModuleName
	if name == "" {
		name = plan.ModuleID
	}
	b.WriteString(fmt.Sprintf("💳 <b>%s</b> · %s\n", escape(name), plan.Duration.Label()))
	if plan.Discounted() {
		b.WriteString(fmt.Sprintf("   %s <s>%s</s> (−%s%%)\n",
			plan.EffectivePrice.StringFixed(2), plan.BasePrice.StringFixed(2), plan.DiscountPercent.String()))
	} else {
		b.WriteString(fmt.Sprintf("   %s\n", plan.EffectivePrice.StringFixed(2)))
	}
	if plan.QuotaLimit > 0 {
		b.WriteString(fmt.Sprintf("   Quota: %d\n", plan.QuotaLimit))
	}
	b.WriteString(fmt.Sprintf("   <code>%s</code>\n", escape(plan.ID)))
	return b.String()
}

func formatSubscription(sub model.Subscription) string {
	var b strings.Builder
	name := sub.ModuleName
	if name == "" {
		name = sub.ModuleID
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b>", subscriptionIcon(sub.Status), escape(name)))
	if sub.PlanName != "" {
		b.WriteString(fmt.Sprintf(" · %s", escape(sub.PlanName)))
	}
	b.WriteString(fmt.Sprintf(" · %s\n", sub.Status))
	if !sub.StartDate.IsZero() || !sub.EndDate.IsZero() {
		b.WriteString(fmt.Sprintf("   %s → %s\n", formatDate(sub.StartDate), formatDate(sub.EndDate)))
	}
	if sub.Status == model.SubscriptionActive {
		b.WriteString(fmt.Sprintf("   Quota left: %d\n", sub.QuotaRemaining))
	}
	b.WriteString(fmt.Sprintf("   <code>%s</code>\n", escape(sub.ID)))
	return b.String()
}

func subscriptionIcon(s model.SubscriptionStatus) string {
	switch s {
	case model.SubscriptionActive:
		return "🟢"
	case model.SubscriptionPending:
		return "⏳"
	default:
		return "⚪️"
	}
}

func formatCachedAI(c model.CachedAIResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧠 <b>%s</b>", c.Type.Label()))
	if c.IsRegenerated {
		b.WriteString(" · regenerated")
	}
	b.WriteString(fmt.Sprintf("\n   %s · %d tokens · $%s\n",
		formatDate(c.GeneratedAt), c.TotalTokens(), c.EstimatedCost.StringFixed(4)))
	b.WriteString(fmt.Sprintf("   %s\n", escape(shortTitle(c.ResponseContent, 160))))
	b.WriteString(fmt.Sprintf("   <code>%s</code>\n", escape(c.ID)))
	return b.String()
}

func formatDeviceSession(s model.DeviceSession) string {
	device := s.DeviceInfo
	if device == "" {
		device = "Unknown device"
	}
	return fmt.Sprintf("💻 <b>%s</b>\n   %s · last seen %s\n",
		escape(device), escape(s.IPAddress), formatDate(s.LastAccessedAt))
}

func formatDate(ts model.Timestamp) string {
	if ts.IsZero() {
		return "—"
	}
	return ts.Format("2006-01-02")
}

package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"myworld-planner/internal/model"
)

// TaskLister is the read side of TaskService the digest needs.
type TaskLister interface {
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
}

// DigestService builds the periodic summary of a chat's open tasks.
type DigestService struct{}

func NewDigestService() *DigestService {
	return &DigestService{}
}

func (s *DigestService) Summary(ctx context.Context, tasks TaskLister, now time.Time) (string, error) {
	all, err := tasks.List(ctx, model.TaskFilter{})
	if err != nil {
		return "", err
	}
	return s.Build(all, now), nil
}

// Build renders the digest as Telegram HTML.
func (s *DigestService) Build(all []model.Task, now time.Time) string {
	var pending, recurring []model.Task
	for _, task := range all {
		status := task.EffectiveStatus()
		if status == model.StatusCompleted || status == model.StatusCancelled {
			continue
		}
		if task.IsRecurring() {
			recurring = append(recurring, task)
			continue
		}
		pending = append(pending, task)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		di, okI := pending[i].Due(now.Location())
		dj, okJ := pending[j].Due(now.Location())
		switch {
		case !okI && !okJ:
			return pending[i].CreatedAt.After(pending[j].CreatedAt.Time)
		case !okI:
			return false
		case !okJ:
			return true
		default:
			return di.Before(dj)
		}
	})

	stats := ComputeStats(all, now)

	var builder strings.Builder
	builder.WriteString("📋 <b>Task digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("Mon, 02 Jan 2006")))
	builder.WriteString(fmt.Sprintf("To do: %d · In progress: %d · Overdue: %d\n\n", stats.Todo, stats.InProgress, stats.Overdue))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatDigestTask(task, now))
		}
	}

	if len(recurring) > 0 {
		builder.WriteString("\n♻️ <b>Recurring</b>\n")
		for _, task := range recurring {
			builder.WriteString(fmt.Sprintf("♻️ %s <i>(%s)</i>\n",
				html.EscapeString(strings.TrimSpace(task.Title)),
				html.EscapeString(task.RecurrenceRule)))
		}
	}

	return strings.TrimSpace(builder.String())
}

func formatDigestTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	due, hasDue := task.Due(now.Location())
	icon := "🟢"
	switch {
	case task.Overdue(now):
		icon = "⚠️"
	case hasDue && due.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
	if task.Priority == model.PriorityHigh || task.Priority == model.PriorityUrgent {
		sb.WriteString(fmt.Sprintf(" <b>[%s]</b>", task.Priority))
	}
	if task.EffectiveStatus() == model.StatusInProgress {
		sb.WriteString(" · in progress")
	}

	if hasDue {
		if task.Overdue(now) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", task.DueDate))
		} else {
			daysLeft := int(due.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d d left", task.DueDate, daysLeft))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

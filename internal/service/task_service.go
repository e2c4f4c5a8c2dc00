package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"myworld-planner/internal/api"
	"myworld-planner/internal/cache"
	"myworld-planner/internal/forms"
	"myworld-planner/internal/model"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title          string
	Description    string
	Priority       model.TaskPriority
	DueDate        string
	RecurrenceRule string
	Tags           []string
}

// Stats summarizes a task list for the dashboard.
type Stats struct {
	Total      int
	Todo       int
	InProgress int
	Completed  int
	Cancelled  int
	Overdue    int
}

// TaskService reads tasks through the query cache and invalidates it after mutations.
type TaskService struct {
	client *api.TaskClient
	cache  *cache.QueryCache
}

func NewTaskService(client *api.TaskClient, c *cache.QueryCache) *TaskService {
	return &TaskService{client: client, cache: c}
}

func taskListKey(filter model.TaskFilter) cache.Key {
	return cache.Key{"tasks", "list", filter.Query().Encode()}
}

func taskDetailKey(id string) cache.Key {
	return cache.Key{"tasks", "detail", id}
}

func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	return cache.Fetch(ctx, s.cache, taskListKey(filter), func(ctx context.Context) ([]model.Task, error) {
		return s.client.List(ctx, filter)
	})
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	return cache.Fetch(ctx, s.cache, taskDetailKey(id), func(ctx context.Context) (model.Task, error) {
		return s.client.Get(ctx, id)
	})
}

func (s *TaskService) Instances(ctx context.Context, id string, q model.InstanceQuery) ([]string, error) {
	if q.From != "" || q.To != "" {
		if err := forms.Validate(forms.DateRangeForm{From: q.From, To: q.To}); err != nil {
			return nil, err
		}
	}
	key := append(taskDetailKey(id), "instances", fmt.Sprintf("%s|%s|%d", q.From, q.To, q.Max))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]string, error) {
		return s.client.Instances(ctx, id, q)
	})
}

func (s *TaskService) Create(ctx context.Context, input TaskInput) (model.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := forms.Validate(forms.TaskForm{
		Title:    input.Title,
		Priority: string(input.Priority),
		DueDate:  input.DueDate,
	}); err != nil {
		return model.Task{}, err
	}

	task, err := s.client.Create(ctx, model.CreateTaskRequest{
		Title:          input.Title,
		Description:    strings.TrimSpace(input.Description),
		Priority:       input.Priority,
		DueDate:        input.DueDate,
		RecurrenceRule: strings.TrimSpace(input.RecurrenceRule),
		Tags:           input.Tags,
	})
	if err != nil {
		return model.Task{}, err
	}

	s.cache.Invalidate("tasks", "list")
	return task, nil
}

// Update sends a partial update and seeds the detail entry with the server's echo.
func (s *TaskService) Update(ctx context.Context, id string, req model.UpdateTaskRequest) (model.Task, error) {
	form := forms.TaskForm{Title: "unchanged"}
	if req.Title != nil {
		form.Title = strings.TrimSpace(*req.Title)
		req.Title = &form.Title
	}
	if req.Priority != nil {
		form.Priority = string(*req.Priority)
	}
	if req.DueDate != nil {
		form.DueDate = *req.DueDate
	}
	if err := forms.Validate(form); err != nil {
		return model.Task{}, err
	}

	task, err := s.client.Update(ctx, id, req)
	if err != nil {
		return model.Task{}, err
	}

	s.cache.Invalidate(taskDetailKey(id)...)
	s.cache.Set(taskDetailKey(id), task)
	s.cache.Invalidate("tasks", "list")
	return task, nil
}

func (s *TaskService) SetStatus(ctx context.Context, id string, status model.TaskStatus) (model.Task, error) {
	return s.Update(ctx, id, model.UpdateTaskRequest{Status: &status})
}

func (s *TaskService) Complete(ctx context.Context, id string) (model.Task, error) {
	return s.SetStatus(ctx, id, model.StatusCompleted)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(taskDetailKey(id)...)
	s.cache.Invalidate("tasks", "list")
	return nil
}

// Stats loads every task and counts them by status.
func (s *TaskService) Stats(ctx context.Context, now time.Time) (Stats, error) {
	tasks, err := s.List(ctx, model.TaskFilter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(tasks, now), nil
}

func ComputeStats(tasks []model.Task, now time.Time) Stats {
	st := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.EffectiveStatus() {
		case model.StatusTodo:
			st.Todo++
		case model.StatusInProgress:
			st.InProgress++
		case model.StatusCompleted:
			st.Completed++
		case model.StatusCancelled:
			st.Cancelled++
		}
		if t.Overdue(now) {
			st.Overdue++
		}
	}
	return st
}

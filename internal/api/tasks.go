package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"myworld-planner/internal/model"
)

const tasksPath = "/api/v1/tasks"

type TaskClient struct {
	t Transport
}

func (c *TaskClient) Create(ctx context.Context, req model.CreateTaskRequest) (model.Task, error) {
	var task model.Task
	err := call(ctx, c.t, http.MethodPost, tasksPath, nil, req, &task)
	return task, err
}

func (c *TaskClient) Get(ctx context.Context, id string) (model.Task, error) {
	var task model.Task
	err := call(ctx, c.t, http.MethodGet, path(tasksPath, id), nil, nil, &task)
	return task, err
}

func (c *TaskClient) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	err := call(ctx, c.t, http.MethodGet, tasksPath, filter.Query(), nil, &tasks)
	return tasks, err
}

func (c *TaskClient) Update(ctx context.Context, id string, req model.UpdateTaskRequest) (model.Task, error) {
	var task model.Task
	err := call(ctx, c.t, http.MethodPut, path(tasksPath, id), nil, req, &task)
	return task, err
}

func (c *TaskClient) Delete(ctx context.Context, id string) error {
	return call(ctx, c.t, http.MethodDelete, path(tasksPath, id), nil, nil, nil)
}

// Instances expands a recurring task into occurrence timestamps.
func (c *TaskClient) Instances(ctx context.Context, id string, q model.InstanceQuery) ([]string, error) {
	query := url.Values{}
	if q.From != "" {
		query.Set("from", q.From)
	}
	if q.To != "" {
		query.Set("to", q.To)
	}
	if q.Max > 0 {
		query.Set("max", strconv.Itoa(q.Max))
	}

	var instances []string
	err := call(ctx, c.t, http.MethodGet, path(tasksPath, id, "instances"), query, nil, &instances)
	return instances, err
}

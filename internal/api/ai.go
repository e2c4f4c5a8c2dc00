package api

import (
	"context"
	"net/http"
	"net/url"

	"myworld-planner/internal/gateway"
	"myworld-planner/internal/model"
)

const aiPath = "/api/v1/ai"

// AIClient calls the analysis endpoints, which run under the long AI timeout.
type AIClient struct {
	t Transport
}

func (c *AIClient) do(ctx context.Context, method, p string, query url.Values, body, out any) error {
	_, err := c.t.Do(ctx, gateway.Request{
		Method:  method,
		Path:    p,
		Query:   query,
		Body:    body,
		Timeout: c.t.AITimeout(),
	}, out)
	return err
}

func (c *AIClient) Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResponse, error) {
	var resp model.AnalysisResponse
	err := c.do(ctx, http.MethodPost, aiPath+"/analyze", nil, req, &resp)
	return resp, err
}

func (c *AIClient) CachedResponses(ctx context.Context, t model.AnalysisType) ([]model.CachedAIResponse, error) {
	var cached []model.CachedAIResponse
	err := c.do(ctx, http.MethodGet, aiPath+"/cache", typeQuery(t), nil, &cached)
	return cached, err
}

func (c *AIClient) DeleteCache(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, path(aiPath+"/cache", id), nil, nil, nil)
}

// RegenerateCache replaces a cached analysis and returns the new cache entry.
func (c *AIClient) RegenerateCache(ctx context.Context, id string, req model.AnalysisRequest) (model.CachedAIResponse, error) {
	var resp model.CachedAIResponse
	err := c.do(ctx, http.MethodPost, path(aiPath+"/cache", id, "regenerate"), nil, req, &resp)
	return resp, err
}

func (c *AIClient) ClearCache(ctx context.Context, t model.AnalysisType) error {
	return c.do(ctx, http.MethodDelete, aiPath+"/cache/clear", typeQuery(t), nil, nil)
}

func typeQuery(t model.AnalysisType) url.Values {
	q := url.Values{}
	if t != "" {
		q.Set("type", string(t))
	}
	return q
}

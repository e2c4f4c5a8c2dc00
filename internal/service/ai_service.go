package service

import (
	"context"
	"errors"
	"strings"

	"myworld-planner/internal/api"
	"myworld-planner/internal/cache"
	"myworld-planner/internal/model"
)

var ErrEmptyInput = errors.New("analysis input is empty")

type AIService struct {
	client *api.AIClient
	cache  *cache.QueryCache
}

func NewAIService(client *api.AIClient, c *cache.QueryCache) *AIService {
	return &AIService{client: client, cache: c}
}

func (s *AIService) Analyze(ctx context.Context, t model.AnalysisType, input string) (model.AnalysisResponse, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.AnalysisResponse{}, ErrEmptyInput
	}
	resp, err := s.client.Analyze(ctx, model.AnalysisRequest{Type: t, Input: input})
	if err != nil {
		return model.AnalysisResponse{}, err
	}
	if !resp.FromCache {
		s.cache.Invalidate("ai", "cache", string(t))
	}
	return resp, nil
}

func (s *AIService) Cached(ctx context.Context, t model.AnalysisType) ([]model.CachedAIResponse, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{"ai", "cache", string(t)}, func(ctx context.Context) ([]model.CachedAIResponse, error) {
		return s.client.CachedResponses(ctx, t)
	})
}

func (s *AIService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteCache(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate("ai", "cache")
	return nil
}

func (s *AIService) Regenerate(ctx context.Context, id string, t model.AnalysisType, input string) (model.CachedAIResponse, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.CachedAIResponse{}, ErrEmptyInput
	}
	resp, err := s.client.RegenerateCache(ctx, id, model.AnalysisRequest{Type: t, Input: input})
	if err != nil {
		return model.CachedAIResponse{}, err
	}
	s.cache.Invalidate("ai", "cache")
	return resp, nil
}

func (s *AIService) Clear(ctx context.Context, t model.AnalysisType) error {
	if err := s.client.ClearCache(ctx, t); err != nil {
		return err
	}
	s.cache.Invalidate("ai", "cache", string(t))
	return nil
}

package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

type AnalysisType string

const (
	AnalysisDiscipline     AnalysisType = "DISCIPLINE"
	AnalysisProgress       AnalysisType = "PROGRESS"
	AnalysisRecommendation AnalysisType = "RECOMMENDATION"
	AnalysisSummary        AnalysisType = "SUMMARY"
)

var AnalysisTypes = []AnalysisType{AnalysisDiscipline, AnalysisProgress, AnalysisRecommendation, AnalysisSummary}

func ParseAnalysisType(raw string) (AnalysisType, bool) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	for _, t := range AnalysisTypes {
		if string(t) == norm {
			return t, true
		}
	}
	return "", false
}

func (t AnalysisType) Label() string {
	switch t {
	case AnalysisDiscipline:
		return "Discipline Analysis"
	case AnalysisProgress:
		return "Progress Tracking"
	case AnalysisRecommendation:
		return "Recommendations"
	case AnalysisSummary:
		return "Summary"
	default:
		return string(t)
	}
}

type AnalysisRequest struct {
	Type  AnalysisType `json:"type"`
	Input string       `json:"input"`
}

type AnalysisResponse struct {
	Content      string `json:"content"`
	FromCache    bool   `json:"fromCache"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
}

// CachedAIResponse is a server-side cached analysis.
type CachedAIResponse struct {
	ID              string          `json:"id"`
	Type            AnalysisType    `json:"type"`
	ResponseContent string          `json:"responseContent"`
	InputTokens     int             `json:"inputTokens"`
	OutputTokens    int             `json:"outputTokens"`
	EstimatedCost   decimal.Decimal `json:"estimatedCost"`
	IsRegenerated   bool            `json:"isRegenerated"`
	GeneratedAt     Timestamp       `json:"generatedAt"`
	Status          string          `json:"status"`
}

func (c CachedAIResponse) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

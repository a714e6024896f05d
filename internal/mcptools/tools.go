// Package mcptools exposes the insights engine as MCP tools bound to one tenant.
package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/insights/chat"
	"crm-insights/internal/insights/daterange"
	"crm-insights/internal/insights/intent"
	"crm-insights/internal/insights/segment"
	"crm-insights/internal/models"
)

// RateLimitAction shares the smart-chat budget with the worker.
const RateLimitAction = "smart_chat"

const maxQuestionLength = 500

// Asker is satisfied by *chat.Engine.
type Asker interface {
	AskDetailed(ctx context.Context, question, businessID string) chat.Answer
}

type Tools struct {
	businessID string
	engine     Asker
	limiter    ratelimit.Limiter
	resolver   *daterange.Resolver
	now        func() time.Time
}

func New(businessID string, engine Asker, limiter ratelimit.Limiter, resolver *daterange.Resolver) (*Tools, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, fmt.Errorf("mcp.business_id is required")
	}
	if limiter == nil {
		limiter = ratelimit.AllowAll{}
	}
	if resolver == nil {
		resolver = daterange.NewResolver(time.Local)
	}
	return &Tools{
		businessID: businessID,
		engine:     engine,
		limiter:    limiter,
		resolver:   resolver,
		now:        time.Now,
	}, nil
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_business_question",
		Description: "Answer a plain-English question about customers, revenue or appointments",
	}, t.AskBusinessQuestion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_question",
		Description: "Show how a question is understood: intent, timeframe, metric and date range",
	}, t.ClassifyQuestion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "customer_segment",
		Description: "Map RFM scores (1-5 each) to a customer segment",
	}, t.CustomerSegment)
}

type QuestionInput struct {
	Question string `json:"question" jsonschema:"The business question in plain English"`
}

// Classification is the classifier output without the custom range, which
// tools never receive.
type Classification struct {
	Intent    models.Intent    `json:"intent"`
	Entity    string           `json:"entity,omitempty"`
	Timeframe models.Timeframe `json:"timeframe"`
	Metric    models.Metric    `json:"metric,omitempty"`
}

func classification(q models.StructuredQuery) Classification {
	return Classification{Intent: q.Intent, Entity: q.Entity, Timeframe: q.Timeframe, Metric: q.Metric}
}

type AskOutput struct {
	Query  Classification     `json:"query"`
	Result models.QueryResult `json:"result"`
}

func validQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("question is required")
	}
	if len(q) > maxQuestionLength {
		return "", fmt.Errorf("question must be at most %d characters", maxQuestionLength)
	}
	return q, nil
}

func (t *Tools) AskBusinessQuestion(ctx context.Context, req *mcp.CallToolRequest, input QuestionInput) (*mcp.CallToolResult, AskOutput, error) {
	question, err := validQuestion(input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	if !t.limiter.CheckLimit(ctx, RateLimitAction, t.businessID) {
		return nil, AskOutput{}, fmt.Errorf("rate limit exceeded, try again in a minute")
	}

	answer := t.engine.AskDetailed(ctx, question, t.businessID)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: answer.Result.Summary}},
	}, AskOutput{Query: classification(answer.Query), Result: answer.Result}, nil
}

type ClassifyOutput struct {
	Query     Classification `json:"query"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Period    string         `json:"period"`
}

func (t *Tools) ClassifyQuestion(ctx context.Context, req *mcp.CallToolRequest, input QuestionInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	question, err := validQuestion(input.Question)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	q := intent.Classify(question)
	r := t.resolver.Resolve(q.Timeframe, q.CustomDate, t.now())
	return nil, ClassifyOutput{
		Query:     classification(q),
		StartDate: r.StartDate(),
		EndDate:   r.EndDate(),
		Period:    daterange.Describe(q.Timeframe),
	}, nil
}

type SegmentInput struct {
	Recency   int `json:"recency" jsonschema:"Recency quintile score, 1 (oldest visit) to 5 (most recent)"`
	Frequency int `json:"frequency" jsonschema:"Frequency quintile score, 1 to 5"`
	Monetary  int `json:"monetary" jsonschema:"Monetary quintile score, 1 to 5"`
}

type SegmentOutput struct {
	Segment models.CustomerSegment `json:"segment"`
}

func (t *Tools) CustomerSegment(ctx context.Context, req *mcp.CallToolRequest, input SegmentInput) (*mcp.CallToolResult, SegmentOutput, error) {
	for name, v := range map[string]int{"recency": input.Recency, "frequency": input.Frequency, "monetary": input.Monetary} {
		if v < 1 || v > 5 {
			return nil, SegmentOutput{}, fmt.Errorf("%s must be between 1 and 5, got %d", name, v)
		}
	}
	return nil, SegmentOutput{Segment: segment.Classify(input.Recency, input.Frequency, input.Monetary)}, nil
}

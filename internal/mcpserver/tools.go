package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/kbbot/internal/adapter"
	"github.com/akolanti/kbbot/internal/api"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var errEmptyInput = errors.New("input must not be empty")

type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the knowledge base"`
}

type AskOutput struct {
	Answer string `json:"answer"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find similar knowledge base passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 3)"`
}

type SearchOutput struct {
	Matches  []api.SearchMatch `json:"matches"`
	Rendered string            `json:"rendered"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the organisation knowledge base",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Return the knowledge base passages nearest to a query without generating an answer",
	}, s.handleSearch)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errEmptyInput
	}
	ctx = context.WithValue(ctx, config.TRACE_ID_KEY, uuid.NewString())
	answer, err := s.rag.Answer(ctx, input.Question, nil)
	if err != nil {
		s.logger.Error("ask failed", "traceId", ctx.Value(config.TRACE_ID_KEY), "error", err)
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errEmptyInput
	}
	ctx = context.WithValue(ctx, config.TRACE_ID_KEY, uuid.NewString())
	result, err := s.rag.Search(ctx, input.Query, input.K)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	resp := adapter.ToSearchResponse(input.Query, result, rag.RenderSearch(result))
	return nil, SearchOutput{Matches: resp.Matches, Rendered: resp.Rendered}, nil
}

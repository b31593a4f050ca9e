package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mockRag struct {
	OnAnswer func(question string) (string, error)
	OnSearch func(query string, k int) (commonModels.QueryResult, error)
}

func (m *mockRag) ProcessRequest(ctx context.Context, j jobModel.Job, hist []string) jobModel.Job {
	return j
}

func (m *mockRag) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	return j
}

func (m *mockRag) Answer(ctx context.Context, question string, hist []string) (string, error) {
	return m.OnAnswer(question)
}

func (m *mockRag) Search(ctx context.Context, query string, k int) (commonModels.QueryResult, error) {
	return m.OnSearch(query, k)
}

func TestHandleAsk(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&mockRag{OnAnswer: func(q string) (string, error) {
		if q == "fail" {
			return "", errors.New("llm down")
		}
		return "answer: " + q, nil
	}})

	tests := []struct {
		name     string
		question string
		want     string
		wantErr  bool
	}{
		{"answers", "open door?", "answer: open door?", false},
		{"empty", "  ", "", true},
		{"provider failure", "fail", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.handleAsk(ctx, nil, AskInput{Question: tt.question})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if out.Answer != tt.want {
				t.Errorf("answer got %q, want %q", out.Answer, tt.want)
			}
		})
	}
}

func TestHandleSearch_Empty(t *testing.T) {
	s := NewServer(&mockRag{OnSearch: func(q string, k int) (commonModels.QueryResult, error) {
		return commonModels.QueryResult{}, nil
	}})
	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "nothing"})
	if err != nil {
		t.Fatalf("handleSearch failed: %v", err)
	}
	if len(out.Matches) != 0 || out.Rendered != config.NotFoundResponse {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestServer_InMemorySession(t *testing.T) {
	ctx := context.Background()
	var gotK int
	s := NewServer(&mockRag{
		OnAnswer: func(q string) (string, error) { return "The policy lets anyone talk to any manager.", nil },
		OnSearch: func(q string, k int) (commonModels.QueryResult, error) {
			gotK = k
			return commonModels.QueryResult{Matches: []commonModels.QueryMatch{
				{Entry: commonModels.CollectionEntry{Text: "open door", Metadata: map[string]any{"source": "ORG-KB/policy.md"}}, Distance: 0.2},
			}}, nil
		},
	})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	t.Run("ask", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "ask", Arguments: map[string]any{"question": "What is the open door policy?"}})
		if err != nil || res.IsError {
			t.Fatalf("CallTool failed: %v %+v", err, res)
		}
		var out AskOutput
		decodeStructured(t, res, &out)
		if out.Answer != "The policy lets anyone talk to any manager." {
			t.Errorf("answer got %q", out.Answer)
		}
	})

	t.Run("search", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "search", Arguments: map[string]any{"query": "open door", "k": 2}})
		if err != nil || res.IsError {
			t.Fatalf("CallTool failed: %v %+v", err, res)
		}
		var out SearchOutput
		decodeStructured(t, res, &out)
		if len(out.Matches) != 1 || out.Matches[0].Source != "ORG-KB/policy.md" || gotK != 2 {
			t.Errorf("unexpected output %+v k=%d", out, gotK)
		}
	})

	t.Run("tool error is reported in result", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "ask", Arguments: map[string]any{"question": ""}})
		if err != nil {
			t.Fatalf("CallTool transport error: %v", err)
		}
		if !res.IsError {
			t.Error("expected IsError for empty question")
		}
	})
}

func decodeStructured(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
}

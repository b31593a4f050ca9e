package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/data/store"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
)

func TestMessageStores(t *testing.T) {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "msg-trace")

	stores := map[string]func(t *testing.T) jobModel.MessageStore{
		"redis": func(t *testing.T) jobModel.MessageStore {
			_, internalStore := newRedis(t)
			return store.NewRedisMessageStore(internalStore)
		},
		"in memory": func(t *testing.T) jobModel.MessageStore {
			return store.InitMessageStore()
		},
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			s := build(t)

			if s.ValidateChatId(ctx, "chat-1") {
				t.Fatal("unknown chat reported as valid")
			}
			if err := s.TrySaveChat(ctx, "chat-1", jobModel.JobPayload{Question: "q"}); !errors.Is(err, store.ErrUnknownChat) {
				t.Fatalf("expected ErrUnknownChat, got %v", err)
			}

			if err := s.InitNewChat(ctx, "chat-1"); err != nil {
				t.Fatalf("InitNewChat failed: %v", err)
			}
			if !s.ValidateChatId(ctx, "chat-1") {
				t.Fatal("new chat not valid")
			}

			history, err := s.GetMessageHistory(ctx, "chat-1")
			if err != nil || len(history) != 0 {
				t.Fatalf("fresh chat history got %v err=%v", history, err)
			}

			for i := 0; i < config.MessageHistoryLength+2; i++ {
				turn := jobModel.JobPayload{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
				if err := s.TrySaveChat(ctx, "chat-1", turn); err != nil {
					t.Fatalf("TrySaveChat failed: %v", err)
				}
			}

			history, err = s.GetMessageHistory(ctx, "chat-1")
			if err != nil {
				t.Fatalf("GetMessageHistory failed: %v", err)
			}
			if len(history) != config.MessageHistoryLength {
				t.Fatalf("history length got %d, want %d", len(history), config.MessageHistoryLength)
			}
			newest := fmt.Sprintf("Q: q%d\nA: a%d", config.MessageHistoryLength+1, config.MessageHistoryLength+1)
			if history[0] != newest {
				t.Errorf("newest turn got %q, want %q", history[0], newest)
			}
		})
	}
}

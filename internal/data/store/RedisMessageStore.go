package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/kbbot/internal/adapter/utils"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/data/redisStore"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

var ErrUnknownChat = errors.New("invalid chat id")

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisMessageStore(store *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  store,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chatId", chatId)
	log.Debug("validating chatId")
	isFound, err := s.store.Exists(ctx, chatId)
	if err != nil {
		log.Error("Failed to check if chatId exists", "err", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, id string, conversation jobModel.JobPayload) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chatId", id)
	if !s.ValidateChatId(ctx, id) {
		log.Error("Failed validation before saving", "err", ErrUnknownChat)
		return ErrUnknownChat
	}
	return s.saveChatId(ctx, id, conversation)
}

func (s *RedisMessageStore) saveChatId(ctx context.Context, id string, conversation jobModel.JobPayload) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chatId", id)
	data, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	if err = s.store.ListPush(ctx, id, data, config.RedisMessageStoreTTL); err != nil {
		log.Error("error saving chat", "error", err)
		return err
	}
	log.Debug("Saved chat successfully")
	return nil
}

// InitNewChat resets the chat list to a single empty marker turn so the key exists.
func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chatId", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, id); err != nil {
		log.Error("Error initializing chat", "error", err)
		return err
	}
	return s.saveChatId(ctx, id, jobModel.JobPayload{})
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chatId", chatId)
	log.Debug("Getting message history")

	// one extra for the marker turn written by InitNewChat
	res, err := s.store.ListGetLast(ctx, chatId, config.MessageHistoryLength+1)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	turns := make([]jobModel.JobPayload, 0, len(res))
	for _, raw := range res {
		var p jobModel.JobPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			log.Warn("Skipping unreadable chat turn", "error", err)
			continue
		}
		turns = append(turns, p)
	}
	return formatHistory(turns), nil
}

// formatHistory renders turns newest first, dropping empty markers.
func formatHistory(turns []jobModel.JobPayload) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Question == "" && t.Answer == "" {
			continue
		}
		out = append(out, "Q: "+t.Question+"\nA: "+t.Answer)
	}
	if len(out) > config.MessageHistoryLength {
		out = out[len(out)-config.MessageHistoryLength:]
	}
	return utils.ReverseStringArray(out)
}

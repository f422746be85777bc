package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
)

// BotStateRepository 老板控制的开关：暂停自动回复、AI 兜底、忽略名单
type BotStateRepository interface {
	IsPaused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool) error
	AIEnabled(ctx context.Context) (bool, error)
	SetAIEnabled(ctx context.Context, enabled bool) error
	IsIgnored(ctx context.Context, identity string) (bool, error)
	Ignore(ctx context.Context, identity string) error
	Unignore(ctx context.Context, identity string) error
	Ignored(ctx context.Context) ([]string, error)
}

type redisBotStateRepository struct {
	client    *redis.Client
	prefix    string
	aiDefault bool
}

func NewRedisBotStateRepository(client *redis.Client, prefix string, aiDefault bool) BotStateRepository {
	if prefix == "" {
		prefix = "chatorder"
	}
	return &redisBotStateRepository{client: client, prefix: prefix, aiDefault: aiDefault}
}

func (r *redisBotStateRepository) key(name string) string {
	return r.prefix + ":bot:" + name
}

func (r *redisBotStateRepository) flag(ctx context.Context, name string, def bool) (bool, error) {
	v, err := r.client.Get(ctx, r.key(name)).Result()
	if err == redis.Nil {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v == "1", nil
}

func (r *redisBotStateRepository) setFlag(ctx context.Context, name string, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return r.client.Set(ctx, r.key(name), v, 0).Err()
}

func (r *redisBotStateRepository) IsPaused(ctx context.Context) (bool, error) {
	return r.flag(ctx, "paused", false)
}

func (r *redisBotStateRepository) SetPaused(ctx context.Context, paused bool) error {
	return r.setFlag(ctx, "paused", paused)
}

func (r *redisBotStateRepository) AIEnabled(ctx context.Context) (bool, error) {
	return r.flag(ctx, "ai", r.aiDefault)
}

func (r *redisBotStateRepository) SetAIEnabled(ctx context.Context, enabled bool) error {
	return r.setFlag(ctx, "ai", enabled)
}

func (r *redisBotStateRepository) IsIgnored(ctx context.Context, identity string) (bool, error) {
	return r.client.SIsMember(ctx, r.key("ignored"), identity).Result()
}

func (r *redisBotStateRepository) Ignore(ctx context.Context, identity string) error {
	return r.client.SAdd(ctx, r.key("ignored"), identity).Err()
}

func (r *redisBotStateRepository) Unignore(ctx context.Context, identity string) error {
	return r.client.SRem(ctx, r.key("ignored"), identity).Err()
}

func (r *redisBotStateRepository) Ignored(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key("ignored")).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// MemBotStateRepository 没配 Redis 时使用，进程重启即丢失
type MemBotStateRepository struct {
	mu      sync.RWMutex
	paused  bool
	ai      bool
	ignored map[string]bool
}

func NewMemBotStateRepository(aiDefault bool) *MemBotStateRepository {
	return &MemBotStateRepository{ai: aiDefault, ignored: make(map[string]bool)}
}

func (r *MemBotStateRepository) IsPaused(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused, nil
}

func (r *MemBotStateRepository) SetPaused(ctx context.Context, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
	return nil
}

func (r *MemBotStateRepository) AIEnabled(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ai, nil
}

func (r *MemBotStateRepository) SetAIEnabled(ctx context.Context, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ai = enabled
	return nil
}

func (r *MemBotStateRepository) IsIgnored(ctx context.Context, identity string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ignored[identity], nil
}

func (r *MemBotStateRepository) Ignore(ctx context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored[identity] = true
	return nil
}

func (r *MemBotStateRepository) Unignore(ctx context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ignored, identity)
	return nil
}

func (r *MemBotStateRepository) Ignored(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.ignored))
	for id := range r.ignored {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCache is the distributed cache layer backed by Redis, used as the
// shared second tier behind MemoryCache for the embedding cache (see
// pkg/embeddings). Unlike the in-memory layer it survives process restarts
// and is shared across every classify-worker/full-classify invocation.
type RedisCache struct {
	client *RedisClient
	stats  CacheStats
}

// NewRedisCache connects to Redis and wraps it as a Cache.
func NewRedisCache(host, password string, db int) (*RedisCache, error) {
	client, err := NewRedisClient(host, password, db)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", host).
		Int("db", db).
		Msg("Redis cache initialized")

	return &RedisCache{client: client, stats: CacheStats{}}, nil
}

// Get recupera un valore da Redis
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		r.stats.Misses++
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	r.stats.Hits++
	return val, nil
}

// Set salva un valore in Redis
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return err
	}

	r.stats.Sets++
	r.stats.Size += int64(len(value))
	return nil
}

// Delete rimuove un valore da Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key); err != nil {
		return err
	}

	r.stats.Deletes++
	return nil
}

// Clear svuota il database Redis selezionato
func (r *RedisCache) Clear(ctx context.Context) error {
	return r.client.client.FlushDB(ctx).Err()
}

// Stats restituisce le statistiche
func (r *RedisCache) Stats() CacheStats {
	return r.stats
}

// Close chiude la connessione Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping verifica la connessione a Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.client.Ping(ctx).Err()
}

// GetTTL restituisce il time-to-live di una chiave
func (r *RedisCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key)
}

// Exists controlla se una chiave esiste
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key)
	return n > 0, err
}

// GetMulti recupera più valori in una sola chiamata tramite pipeline
func (r *RedisCache) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	result := make(map[string][]byte)
	for i, cmd := range cmds {
		if val, err := cmd.Bytes(); err == nil {
			result[keys[i]] = val
			r.stats.Hits++
		}
	}
	return result, nil
}

// SetMulti salva più valori in una sola chiamata tramite pipeline
func (r *RedisCache) SetMulti(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	pipe := r.client.Pipeline()
	for key, value := range items {
		pipe.Set(ctx, key, value, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	r.stats.Sets += int64(len(items))
	return nil
}

// Increment incrementa un contatore atomicamente
func (r *RedisCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.IncrBy(ctx, key, delta)
}

// Decrement decrementa un contatore atomicamente
func (r *RedisCache) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.IncrBy(ctx, key, -delta)
}

package cmd

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/oguzatay/smartmeet/config"
	"github.com/oguzatay/smartmeet/pkg/chat"
	"github.com/oguzatay/smartmeet/pkg/db"
	"github.com/oguzatay/smartmeet/pkg/llm"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
	"github.com/oguzatay/smartmeet/pkg/memory"
	"github.com/oguzatay/smartmeet/pkg/pipeline"
	"github.com/oguzatay/smartmeet/pkg/pipeline/queue"
	"github.com/oguzatay/smartmeet/pkg/speaker"
	"github.com/oguzatay/smartmeet/pkg/summarize"
	"github.com/oguzatay/smartmeet/pkg/transcribe"
)

// connectDatabase opens the Postgres pool from the environment.
func connectDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, db.ConfigFromEnv())
}

// connectRedis opens the shared Redis client.
func connectRedis(c *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// newQueue builds the processing queue on the given Redis client.
func newQueue(rdb *redis.Client) *queue.RedisQueue {
	return queue.NewRedisQueue(rdb, queue.DefaultConfig())
}

// newMemoryIndex assembles the semantic memory index.
func newMemoryIndex(c *config.Config, rdb *redis.Client, logger logging.Logger) *memory.Index {
	embedder := memory.NewOpenAIEmbedder(memory.EmbedderConfig{
		APIKey:  c.Embedding.Key(),
		BaseURL: c.Embedding.BaseURL,
		Model:   c.Embedding.Model,
		Timeout: c.Embedding.Timeout,
	})
	return memory.NewIndex(embedder, memory.NewRedisStore(rdb, logger), logger)
}

// newCompleter builds the chat-completion client.
func newCompleter(c *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:  c.LLM.Key(),
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
		Timeout: c.LLM.Timeout,
	})
}

// newPipeline assembles the full processing pipeline.
func newPipeline(c *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger logging.Logger, opts ...pipeline.Option) *pipeline.Pipeline {
	repo := meeting.NewRepository(pool, logger)
	completer := newCompleter(c)

	transcriber := transcribe.NewWhisper(transcribe.WhisperConfig{
		APIKey:  c.Transcribe.Key(),
		BaseURL: c.Transcribe.BaseURL,
		Model:   c.Transcribe.Model,
		Timeout: c.Transcribe.Timeout,
	}, logger)

	encoder := speaker.NewHTTPEncoder(speaker.HTTPEncoderConfig{
		BaseURL: c.Encoder.URL,
		Dim:     c.Encoder.Dim,
		Timeout: c.Encoder.Timeout,
	}, logger)

	pipelineCfg := pipeline.DefaultConfig()
	if c.Pipeline.FFmpegPath != "" {
		pipelineCfg.FFmpegPath = c.Pipeline.FFmpegPath
	}

	return pipeline.New(pipeline.Deps{
		Store:       repo,
		Transcriber: transcriber,
		Encoder:     encoder,
		Profiles:    speaker.NewProfileStore(pool, c.Encoder.Dim, logger),
		Corrector:   summarize.NewCorrector(completer, logger),
		Analyzer:    summarize.NewSummarizer(completer, logger),
		Indexer:     newMemoryIndex(c, rdb, logger),
		Locker:      pipeline.NewRedisLocker(rdb, 30*time.Minute),
	}, append([]pipeline.Option{pipeline.WithConfig(pipelineCfg), pipeline.WithLogger(logger)}, opts...)...)
}

// newChat assembles the retrieval chat.
func newChat(c *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger logging.Logger) *chat.Chat {
	repo := meeting.NewRepository(pool, logger)
	return chat.New(newCompleter(c), newMemoryIndex(c, rdb, logger), repo, logger)
}

// parseID parses a positional numeric ID argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID(arg)
	}
	return id, nil
}

type errInvalidID string

func (e errInvalidID) Error() string {
	return "invalid id " + strconv.Quote(string(e)) + ": expected a positive integer"
}

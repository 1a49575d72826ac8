package storage

import (
	"context"
	"os"
	"sync"

	"chatrunner/internal/core"
	"chatrunner/internal/util"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// FileStorage keeps run history in a JSON file
type FileStorage struct {
	filePath   string
	maxRecords int
	mu         sync.Mutex
}

// NewFileStorage creates a file-backed history store
func NewFileStorage(filePath string, maxRecords int) *FileStorage {
	if maxRecords <= 0 {
		maxRecords = core.HistoryMaxRecords
	}
	return &FileStorage{filePath: filePath, maxRecords: maxRecords}
}

// SaveRecord appends a record, keeping the newest maxRecords entries
func (fs *FileStorage) SaveRecord(ctx context.Context, record *core.RunRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	records, err := fs.load()
	if err != nil {
		return err
	}

	records = append(records, *record)
	if len(records) > fs.maxRecords {
		records = records[len(records)-fs.maxRecords:]
	}

	data, err := sonic.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.filePath, data, core.FilePermissionReadWrite)
}

// LoadRecords returns all stored records, oldest first
func (fs *FileStorage) LoadRecords(ctx context.Context) ([]core.RunRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.load()
}

func (fs *FileStorage) load() ([]core.RunRecord, error) {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []core.RunRecord{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []core.RunRecord{}, nil
	}

	var records []core.RunRecord
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.RunRecord{}
	}
	return records, nil
}

func (fs *FileStorage) Close() error {
	return nil
}

// RedisStorage keeps run history in a capped Redis list
type RedisStorage struct {
	client     *redis.Client
	key        string
	maxRecords int64
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL        string
	Key        string
	MaxRecords int
}

// NewRedisStorage connects to Redis and verifies the connection with PING
func NewRedisStorage(ctx context.Context, config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, core.HistoryOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	key := config.Key
	if key == "" {
		key = core.HistoryRedisKey
	}
	maxRecords := config.MaxRecords
	if maxRecords <= 0 {
		maxRecords = core.HistoryMaxRecords
	}

	return &RedisStorage{client: client, key: key, maxRecords: int64(maxRecords)}, nil
}

// SaveRecord pushes a record and trims the list to the newest maxRecords
func (rs *RedisStorage) SaveRecord(ctx context.Context, record *core.RunRecord) error {
	data, err := util.MarshalJSON(record)
	if err != nil {
		return err
	}

	pipe := rs.client.TxPipeline()
	pipe.RPush(ctx, rs.key, data)
	pipe.LTrim(ctx, rs.key, -rs.maxRecords, -1)
	_, err = pipe.Exec(ctx)
	return err
}

// LoadRecords returns all stored records, oldest first
func (rs *RedisStorage) LoadRecords(ctx context.Context) ([]core.RunRecord, error) {
	values, err := rs.client.LRange(ctx, rs.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]core.RunRecord, 0, len(values))
	for _, value := range values {
		var record core.RunRecord
		if err := sonic.Unmarshal([]byte(value), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// InitStorage picks the history backend: Redis when redisURL is set and
// reachable, else the JSON file when historyFile is set, else no history.
func InitStorage(ctx context.Context, redisURL, historyFile string, logger core.Logger) core.HistoryStore {
	if redisURL != "" {
		redisStorage, err := NewRedisStorage(ctx, RedisStorageConfig{
			URL: redisURL,
			Key: core.HistoryRedisKey,
		})
		if err == nil {
			logger.Debug("Using Redis history storage")
			return redisStorage
		}
		logger.Warn("%v", core.ErrHistoryUnavailable("redis", err))
	}

	if historyFile != "" {
		logger.Debug("Using file history storage at %s", historyFile)
		return NewFileStorage(historyFile, core.HistoryMaxRecords)
	}

	logger.Debug("Run history disabled")
	return &core.NopHistory{}
}

package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// OutcomeSuccess is the outcome recorded for a successful call; failures
// record their error code.
const OutcomeSuccess = "success"

// StatsService counts call outcomes per agency and action. Counters live in
// a Redis hash per agency when Redis is available and in memory otherwise.
// Nothing credential-derived is ever written.
type StatsService struct {
	client *redis.Client
	prefix string
	logger *logrus.Logger

	// In-memory fallback when Redis is not available
	mem      map[string]map[string]int64
	memMutex sync.RWMutex
}

// NewStatsService creates a new stats service. client may be nil.
func NewStatsService(client *redis.Client, prefix string, logger *logrus.Logger) StatsServiceInterface {
	if prefix == "" {
		prefix = "mtr:stats"
	}
	return &StatsService{
		client: client,
		prefix: prefix,
		logger: logger,
		mem:    make(map[string]map[string]int64),
	}
}

func (s *StatsService) key(agency string) string {
	return fmt.Sprintf("%s:%s", s.prefix, strings.ToLower(agency))
}

func field(action, outcome string) string {
	return action + ":" + outcome
}

// Record increments the counter for one outcome
func (s *StatsService) Record(ctx context.Context, agency, action, outcome string) {
	agency = strings.ToUpper(agency)

	// Try Redis first if available
	if s.client != nil {
		pipe := s.client.TxPipeline()
		pipe.HIncrBy(ctx, s.key(agency), field(action, outcome), 1)
		pipe.SAdd(ctx, s.prefix+":agencies", agency)
		_, err := pipe.Exec(ctx)
		if err == nil {
			return
		}
		s.logger.WithFields(logrus.Fields{
			"agency": agency,
			"error":  err.Error(),
		}).Warn("Redis stats error, falling back to memory")
	}

	s.memMutex.Lock()
	counters, ok := s.mem[agency]
	if !ok {
		counters = make(map[string]int64)
		s.mem[agency] = counters
	}
	counters[field(action, outcome)]++
	s.memMutex.Unlock()
}

// Snapshot returns agency -> "action:outcome" -> count. Redis counters and
// memory counters are summed, since a Redis outage moves writes to memory.
func (s *StatsService) Snapshot(ctx context.Context) (map[string]map[string]int64, error) {
	out := make(map[string]map[string]int64)

	if s.client != nil {
		agencies, err := s.client.SMembers(ctx, s.prefix+":agencies").Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list stats agencies: %w", err)
		}
		for _, agency := range agencies {
			values, err := s.client.HGetAll(ctx, s.key(agency)).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to read stats for %s: %w", agency, err)
			}
			counters := make(map[string]int64, len(values))
			for f, v := range values {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					continue
				}
				counters[f] = n
			}
			out[agency] = counters
		}
	}

	s.memMutex.RLock()
	defer s.memMutex.RUnlock()
	for agency, counters := range s.mem {
		dst, ok := out[agency]
		if !ok {
			dst = make(map[string]int64, len(counters))
			out[agency] = dst
		}
		for f, n := range counters {
			dst[f] += n
		}
	}
	return out, nil
}

// Health returns stats store health status
func (s *StatsService) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.client.Ping(ctx).Err(); err != nil {
			health["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			health["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	} else {
		health["redis"] = map[string]interface{}{
			"status": "disabled",
		}
	}

	// Memory counters are always available
	health["memory"] = map[string]interface{}{
		"status": "healthy",
	}

	return health
}

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// markerField is written for every cached school so that "no measures" is
// distinguishable from "not cached".
const markerField = "_"

// Reader is the averaged-measure source the cache sits in front of.
type Reader interface {
	SchoolAverages(ctx context.Context, schoolIDs []uuid.UUID) (map[uuid.UUID]map[uuid.UUID]float64, error)
}

// MeasureCache caches per-school metric averages in redis hashes.
// Redis failures degrade to reading straight from the inner reader.
type MeasureCache struct {
	client *redis.Client
	inner  Reader
	ttl    time.Duration
	log    zerolog.Logger
}

func NewMeasureCache(client *redis.Client, inner Reader, ttl time.Duration, log zerolog.Logger) *MeasureCache {
	return &MeasureCache{client: client, inner: inner, ttl: ttl, log: log}
}

func measureKey(schoolID uuid.UUID) string {
	return "contracts:measure-avg:" + schoolID.String()
}

func (c *MeasureCache) SchoolAverages(ctx context.Context, schoolIDs []uuid.UUID) (map[uuid.UUID]map[uuid.UUID]float64, error) {
	if len(schoolIDs) == 0 {
		return map[uuid.UUID]map[uuid.UUID]float64{}, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(schoolIDs))
	for i, schoolID := range schoolIDs {
		cmds[i] = pipe.HGetAll(ctx, measureKey(schoolID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Msg("measure cache read failed")
		return c.inner.SchoolAverages(ctx, schoolIDs)
	}

	result := make(map[uuid.UUID]map[uuid.UUID]float64, len(schoolIDs))
	var misses []uuid.UUID
	for i, cmd := range cmds {
		averages, ok := decodeAverages(cmd.Val())
		if !ok {
			misses = append(misses, schoolIDs[i])
			continue
		}
		if len(averages) > 0 {
			result[schoolIDs[i]] = averages
		}
	}
	if len(misses) == 0 {
		return result, nil
	}

	fresh, err := c.inner.SchoolAverages(ctx, misses)
	if err != nil {
		return nil, err
	}
	for schoolID, averages := range fresh {
		result[schoolID] = averages
	}
	c.store(ctx, misses, fresh)
	return result, nil
}

func (c *MeasureCache) store(ctx context.Context, schoolIDs []uuid.UUID, fresh map[uuid.UUID]map[uuid.UUID]float64) {
	pipe := c.client.TxPipeline()
	for _, schoolID := range schoolIDs {
		fields := map[string]interface{}{markerField: "1"}
		for metricID, avg := range fresh[schoolID] {
			fields[metricID.String()] = strconv.FormatFloat(avg, 'g', -1, 64)
		}
		key := measureKey(schoolID)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Int("schools", len(schoolIDs)).Msg("measure cache write failed")
	}
}

func decodeAverages(fields map[string]string) (map[uuid.UUID]float64, bool) {
	if _, ok := fields[markerField]; !ok {
		return nil, false
	}
	averages := make(map[uuid.UUID]float64, len(fields)-1)
	for field, raw := range fields {
		if field == markerField {
			continue
		}
		metricID, err := uuid.Parse(field)
		if err != nil {
			return nil, false
		}
		avg, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		averages[metricID] = avg
	}
	return averages, true
}

// internal/refdata/cache.go
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"

	"muni-flows/internal/common/logger"
)

var (
	ErrUnavailable       = errors.New("REFERENCE_DATA_UNAVAILABLE")
	ErrQuestionSetBroken = errors.New("QUESTION_SET_INVALID")
)

const defaultTTL = 15 * time.Minute

// Facility is a bookable sport facility from the municipality's catalog.
type Facility struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	OpenTime     string   `json:"openTime"`  // HH:MM
	CloseTime    string   `json:"closeTime"` // HH:MM
	SlotMinutes  int      `json:"slotMinutes"`
	MaxPartySize int      `json:"maxPartySize,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
}

// QuestionSet is a municipality-specific extra-questions block appended to
// a flow's review step. Sets come from municipal staff, not engineers, so
// each one is schema-checked before use.
type QuestionSet struct {
	MunicipalityID string                   `json:"municipalityId"`
	FlowID         string                   `json:"flowId"`
	Questions      []map[string]interface{} `json:"questions"`
}

// FeeItem is one line of a fee schedule.
type FeeItem struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	AmountCents int64  `json:"amountCents"`
}

// FeeSchedule is a municipality's fee table for one flow, addressed by the
// flow catalog's fee-schedule key.
type FeeSchedule struct {
	MunicipalityID string    `json:"municipalityId"`
	Key            string    `json:"key"`
	Items          []FeeItem `json:"items"`
}

// Source loads reference data from the system of record on cache misses.
type Source interface {
	Facilities(ctx context.Context, municipalityID string) ([]Facility, error)
	QuestionSet(ctx context.Context, municipalityID, flowID string) (*QuestionSet, error)
	FeeSchedule(ctx context.Context, municipalityID, key string) (*FeeSchedule, error)
	LicenseTypes(ctx context.Context, municipalityID string) ([]string, error)
}

// Cache is a cache-aside layer over the reference-data source. Lookups hit
// Redis first and fall through to the source, writing back with a TTL.
type Cache struct {
	redis  *redis.Client
	source Source
	logger logger.Logger
	ttl    time.Duration
}

// NewCache creates a reference-data cache with the default TTL.
func NewCache(rdb *redis.Client, source Source, log logger.Logger) *Cache {
	return &Cache{redis: rdb, source: source, logger: log, ttl: defaultTTL}
}

// Facilities returns the bookable facilities of a municipality.
func (c *Cache) Facilities(ctx context.Context, municipalityID string) ([]Facility, error) {
	key := fmt.Sprintf("refdata:facilities:%s", municipalityID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var facilities []Facility
		if err := json.Unmarshal([]byte(cached), &facilities); err == nil {
			return facilities, nil
		}
		// corrupt entry: fall through and overwrite
		c.logger.Warn("Dropping unreadable cache entry", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Redis lookup failed, falling back to source", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	facilities, err := c.source.Facilities(ctx, municipalityID)
	if err != nil {
		return nil, fmt.Errorf("%w: facilities for %s: %v", ErrUnavailable, municipalityID, err)
	}

	c.writeBack(ctx, key, facilities)
	return facilities, nil
}

// QuestionSet returns the validated extra-questions block for a flow in a
// municipality, or nil when the municipality defines none.
func (c *Cache) QuestionSet(ctx context.Context, municipalityID, flowID string) (*QuestionSet, error) {
	key := fmt.Sprintf("refdata:questions:%s:%s", municipalityID, flowID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var qs QuestionSet
		if err := json.Unmarshal([]byte(cached), &qs); err == nil {
			return &qs, nil
		}
		c.logger.Warn("Dropping unreadable cache entry", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Redis lookup failed, falling back to source", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	qs, err := c.source.QuestionSet(ctx, municipalityID, flowID)
	if err != nil {
		return nil, fmt.Errorf("%w: question set %s/%s: %v", ErrUnavailable, municipalityID, flowID, err)
	}
	if qs == nil {
		return nil, nil
	}

	if err := ValidateQuestionSet(qs); err != nil {
		return nil, err
	}

	c.writeBack(ctx, key, qs)
	return qs, nil
}

// FeeSchedule returns the fee table addressed by the flow catalog's
// fee-schedule key, or nil when the municipality publishes none.
func (c *Cache) FeeSchedule(ctx context.Context, municipalityID, scheduleKey string) (*FeeSchedule, error) {
	key := fmt.Sprintf("refdata:fees:%s:%s", municipalityID, scheduleKey)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var fees FeeSchedule
		if err := json.Unmarshal([]byte(cached), &fees); err == nil {
			return &fees, nil
		}
		c.logger.Warn("Dropping unreadable cache entry", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Redis lookup failed, falling back to source", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	fees, err := c.source.FeeSchedule(ctx, municipalityID, scheduleKey)
	if err != nil {
		return nil, fmt.Errorf("%w: fee schedule %s/%s: %v", ErrUnavailable, municipalityID, scheduleKey, err)
	}
	if fees == nil {
		return nil, nil
	}

	c.writeBack(ctx, key, fees)
	return fees, nil
}

// LicenseTypes returns the license types a municipality issues. Flows use
// the list as the enum for their license-type field.
func (c *Cache) LicenseTypes(ctx context.Context, municipalityID string) ([]string, error) {
	key := fmt.Sprintf("refdata:licensetypes:%s", municipalityID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var types []string
		if err := json.Unmarshal([]byte(cached), &types); err == nil {
			return types, nil
		}
		c.logger.Warn("Dropping unreadable cache entry", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Redis lookup failed, falling back to source", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	types, err := c.source.LicenseTypes(ctx, municipalityID)
	if err != nil {
		return nil, fmt.Errorf("%w: license types for %s: %v", ErrUnavailable, municipalityID, err)
	}

	c.writeBack(ctx, key, types)
	return types, nil
}

// Invalidate drops the cached entries of one municipality.
func (c *Cache) Invalidate(ctx context.Context, municipalityID string) error {
	pattern := fmt.Sprintf("refdata:*:%s*", municipalityID)
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *Cache) writeBack(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write-back failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// questionSetSchema constrains what municipal staff may publish. Question
// types map onto the wizard's field types.
const questionSetSchema = `{
	"type": "object",
	"required": ["municipalityId", "flowId", "questions"],
	"properties": {
		"municipalityId": {"type": "string", "minLength": 1},
		"flowId": {"type": "string", "minLength": 1},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "label", "type"],
				"properties": {
					"name": {"type": "string", "pattern": "^[a-zA-Z][a-zA-Z0-9]*$"},
					"label": {"type": "string", "minLength": 1},
					"type": {"enum": ["string", "email", "phone", "date", "currency", "percent", "url"]},
					"required": {"type": "boolean"},
					"options": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

// ValidateQuestionSet schema-checks a question set before it reaches a
// wizard. Invalid sets are rejected whole rather than partially applied.
func ValidateQuestionSet(qs *QuestionSet) error {
	doc, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuestionSetBroken, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(questionSetSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuestionSetBroken, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrQuestionSetBroken, strings.Join(problems, "; "))
	}
	return nil
}

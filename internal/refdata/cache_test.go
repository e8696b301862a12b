// internal/refdata/cache_test.go
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muni-flows/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSource struct {
	facilities   []Facility
	questionSet  *QuestionSet
	feeSchedule  *FeeSchedule
	licenseTypes []string
	err          error
	calls        int
}

func (f *fakeSource) Facilities(_ context.Context, _ string) ([]Facility, error) {
	f.calls++
	return f.facilities, f.err
}

func (f *fakeSource) QuestionSet(_ context.Context, _, _ string) (*QuestionSet, error) {
	f.calls++
	return f.questionSet, f.err
}

func (f *fakeSource) FeeSchedule(_ context.Context, _, _ string) (*FeeSchedule, error) {
	f.calls++
	return f.feeSchedule, f.err
}

func (f *fakeSource) LicenseTypes(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.licenseTypes, f.err
}

func tennisCourts() []Facility {
	return []Facility{
		{ID: "court-1", Name: "North Tennis Court", Type: "tennis", OpenTime: "08:00", CloseTime: "22:00", SlotMinutes: 60},
		{ID: "court-2", Name: "South Tennis Court", Type: "tennis", OpenTime: "08:00", CloseTime: "22:00", SlotMinutes: 60},
	}
}

func validQuestionSet() *QuestionSet {
	return &QuestionSet{
		MunicipalityID: "springfield",
		FlowID:         "permit",
		Questions: []map[string]interface{}{
			{"name": "floodZone", "label": "Is the property in a flood zone?", "type": "string", "required": true},
		},
	}
}

// ==========================
// Cache-Aside Tests
// ==========================

func TestCache_Facilities_MissLoadsSourceAndWritesBack(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{facilities: tennisCourts()}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	expected, _ := json.Marshal(tennisCourts())
	mock.ExpectGet("refdata:facilities:springfield").RedisNil()
	mock.ExpectSet("refdata:facilities:springfield", expected, defaultTTL).SetVal("OK")

	facilities, err := cache.Facilities(context.Background(), "springfield")

	require.NoError(t, err)
	assert.Len(t, facilities, 2)
	assert.Equal(t, 1, source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Facilities_HitSkipsSource(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{facilities: tennisCourts()}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	cached, _ := json.Marshal(tennisCourts())
	mock.ExpectGet("refdata:facilities:springfield").SetVal(string(cached))

	facilities, err := cache.Facilities(context.Background(), "springfield")

	require.NoError(t, err)
	assert.Len(t, facilities, 2)
	assert.Equal(t, 0, source.calls, "cache hit must not touch the source")
}

func TestCache_Facilities_SourceFailureOnMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{err: errors.New("catalog service down")}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	mock.ExpectGet("refdata:facilities:springfield").RedisNil()

	facilities, err := cache.Facilities(context.Background(), "springfield")

	assert.Nil(t, facilities)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCache_Facilities_RedisDownFallsBackToSource(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{facilities: tennisCourts()}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	mock.ExpectGet("refdata:facilities:springfield").SetErr(errors.New("connection refused"))
	expected, _ := json.Marshal(tennisCourts())
	mock.ExpectSet("refdata:facilities:springfield", expected, defaultTTL).SetErr(errors.New("connection refused"))

	facilities, err := cache.Facilities(context.Background(), "springfield")

	require.NoError(t, err, "a cold cache must degrade to the source, not fail")
	assert.Len(t, facilities, 2)
}

// ==========================
// TTL Tests (miniredis)
// ==========================

func TestCache_Facilities_EntryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &fakeSource{facilities: tennisCourts()}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	_, err := cache.Facilities(context.Background(), "springfield")
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)

	// within TTL the cache serves
	_, err = cache.Facilities(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	// past TTL the source reloads
	mr.FastForward(defaultTTL + time.Second)
	_, err = cache.Facilities(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCache_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &fakeSource{facilities: tennisCourts()}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	_, err := cache.Facilities(context.Background(), "springfield")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), "springfield"))

	_, err = cache.Facilities(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

// ==========================
// Fee Schedule and License Type Tests
// ==========================

func TestCache_FeeSchedule_MissLoadsSourceAndWritesBack(t *testing.T) {
	fees := &FeeSchedule{
		MunicipalityID: "springfield",
		Key:            "license-fees",
		Items: []FeeItem{
			{Code: "base", Label: "Base license fee", AmountCents: 7500},
			{Code: "inspection", Label: "Premises inspection", AmountCents: 12000},
		},
	}
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{feeSchedule: fees}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	expected, _ := json.Marshal(fees)
	mock.ExpectGet("refdata:fees:springfield:license-fees").RedisNil()
	mock.ExpectSet("refdata:fees:springfield:license-fees", expected, defaultTTL).SetVal("OK")

	got, err := cache.FeeSchedule(context.Background(), "springfield", "license-fees")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 1, source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_FeeSchedule_NonePublished(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(rdb, &fakeSource{}, logger.NewNoOpLogger())

	fees, err := cache.FeeSchedule(context.Background(), "springfield", "license-fees")

	assert.NoError(t, err)
	assert.Nil(t, fees)
	assert.Empty(t, mr.Keys(), "absent schedules are not cached")
}

func TestCache_LicenseTypes_HitSkipsSource(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{licenseTypes: []string{"food_service", "retail"}}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	cached, _ := json.Marshal([]string{"food_service", "retail"})
	mock.ExpectGet("refdata:licensetypes:springfield").SetVal(string(cached))

	types, err := cache.LicenseTypes(context.Background(), "springfield")

	require.NoError(t, err)
	assert.Equal(t, []string{"food_service", "retail"}, types)
	assert.Equal(t, 0, source.calls, "cache hit must not touch the source")
}

func TestCache_LicenseTypes_SourceFailureOnMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	source := &fakeSource{err: errors.New("registry service down")}
	cache := NewCache(rdb, source, logger.NewNoOpLogger())

	mock.ExpectGet("refdata:licensetypes:springfield").RedisNil()

	types, err := cache.LicenseTypes(context.Background(), "springfield")

	assert.Nil(t, types)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

// ==========================
// Question Set Tests
// ==========================

func TestCache_QuestionSet_ValidatesBeforeCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	broken := validQuestionSet()
	broken.Questions = []map[string]interface{}{
		{"name": "123bad", "label": "Bad name", "type": "string"},
	}
	cache := NewCache(rdb, &fakeSource{questionSet: broken}, logger.NewNoOpLogger())

	qs, err := cache.QuestionSet(context.Background(), "springfield", "permit")

	assert.Nil(t, qs)
	assert.True(t, errors.Is(err, ErrQuestionSetBroken))
	assert.Empty(t, mr.Keys(), "invalid sets must never enter the cache")
}

func TestCache_QuestionSet_NoneDefined(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(rdb, &fakeSource{}, logger.NewNoOpLogger())

	qs, err := cache.QuestionSet(context.Background(), "springfield", "permit")

	assert.NoError(t, err)
	assert.Nil(t, qs)
}

func TestValidateQuestionSet(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(qs *QuestionSet)
		wantErr bool
	}{
		{"valid set", func(qs *QuestionSet) {}, false},
		{"missing municipality", func(qs *QuestionSet) { qs.MunicipalityID = "" }, true},
		{"unknown question type", func(qs *QuestionSet) {
			qs.Questions[0]["type"] = "checkbox-grid"
		}, true},
		{"question without label", func(qs *QuestionSet) {
			delete(qs.Questions[0], "label")
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := validQuestionSet()
			tt.mutate(qs)
			err := ValidateQuestionSet(qs)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrQuestionSetBroken))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package counselorRepo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mindease/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCounselorRepo struct{ mock.Mock }

func (m *MockCounselorRepo) List(ctx context.Context) ([]models.Counselor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Counselor), args.Error(1)
}

func (m *MockCounselorRepo) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Counselor), args.Error(1)
}

func (m *MockCounselorRepo) Upsert(ctx context.Context, c *models.Counselor) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCounselorRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

const cacheTTL = 5 * time.Minute

func TestCachedCounselorRepo_ListMissThenHit(t *testing.T) {
	ctx := context.Background()
	client, cacheMock := redismock.NewClientMock()
	inner := new(MockCounselorRepo)
	repo := NewCachedCounselorRepo(inner, client, cacheTTL, zap.NewNop())

	all := DefaultCounselors()
	raw, err := json.Marshal(all)
	require.NoError(t, err)

	cacheMock.ExpectGet(allCounselorsKey).RedisNil()
	inner.On("List", ctx).Return(all, nil).Once()
	cacheMock.ExpectSet(allCounselorsKey, raw, cacheTTL).SetVal("OK")

	got, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	cacheMock.ExpectGet(allCounselorsKey).SetVal(string(raw))
	got, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Aanya Sharma", got[0].Name)

	inner.AssertExpectations(t)
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestCachedCounselorRepo_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	client, cacheMock := redismock.NewClientMock()
	inner := new(MockCounselorRepo)
	repo := NewCachedCounselorRepo(inner, client, cacheTTL, zap.NewNop())

	c := &DefaultCounselors()[1]
	cacheMock.ExpectGet(counselorKey(2)).SetErr(errors.New("connection refused"))
	inner.On("GetByID", ctx, int64(2)).Return(c, nil).Once()
	cacheMock.ExpectSet(counselorKey(2), mustJSON(t, c), cacheTTL).SetErr(errors.New("connection refused"))

	got, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ravi Iyer", got.Name)
	inner.AssertExpectations(t)
}

func TestCachedCounselorRepo_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	client, cacheMock := redismock.NewClientMock()
	inner := new(MockCounselorRepo)
	repo := NewCachedCounselorRepo(inner, client, cacheTTL, zap.NewNop())

	cacheMock.ExpectGet(counselorKey(99)).RedisNil()
	inner.On("GetByID", ctx, int64(99)).Return(nil, models.ErrCounselorNotFound).Once()

	_, err := repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, models.ErrCounselorNotFound)
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestCachedCounselorRepo_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	client, cacheMock := redismock.NewClientMock()
	inner := new(MockCounselorRepo)
	repo := NewCachedCounselorRepo(inner, client, cacheTTL, zap.NewNop())

	c := &models.Counselor{ID: 3, Name: "Dr. Priya Menon"}
	inner.On("Upsert", ctx, c).Return(nil).Once()
	cacheMock.ExpectDel(allCounselorsKey, counselorKey(3)).SetVal(2)

	require.NoError(t, repo.Upsert(ctx, c))
	inner.AssertExpectations(t)
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

func newRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestCollect_NoDependencies(t *testing.T) {
	result := (&Service{}).Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "helpmate-api", result.Service)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.NotEmpty(t, result.Runtime.GoVersion)
}

func TestCollect_WithRedisAndDB(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	svc := &Service{Rdb: rdb, DB: pinger{}}

	result := svc.Collect(ctx)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "100", result.Traffic.SuccessRate)

	require.NoError(t, rdb.Set(ctx, KeyReqTotal, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, KeyReqErrors, "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, KeyResTime, "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, KeyResCount, "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, KeyLastReq, `{"method":"GET","path":"/api/v1/projects"}`, 0).Err())

	result = svc.Collect(ctx)
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 2, result.Traffic.FailedCount)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
	assert.Equal(t, "GET", result.Traffic.LastRequest["method"])
}

func TestCollect_DatabaseError(t *testing.T) {
	svc := &Service{Rdb: newRedis(t), DB: pinger{err: errors.New("down")}}
	result := svc.Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "error", result.Dependencies["database"].Status)
	assert.Nil(t, result.Dependencies["database"].PingMs)
}

func TestReset(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, KeyReqTotal, "5", 0).Err())
	require.NoError(t, rdb.LPush(ctx, KeyErrorLog, `{"path":"/x"}`).Err())

	svc := &Service{Rdb: rdb}
	require.NoError(t, svc.Reset(ctx))

	n, err := rdb.Exists(ctx, KeyReqTotal, KeyErrorLog).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotEmpty(t, rdb.Get(ctx, KeyStartTime).Val())
}

func TestErrors(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.LPush(ctx, KeyErrorLog, `{"path":"/a"}`, "not json", `{"path":"/b"}`).Err())

	out, err := (&Service{Rdb: rdb}).Errors(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "/b", out[0]["path"])

	empty, err := (&Service{}).Errors(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

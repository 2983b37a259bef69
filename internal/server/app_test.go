package server

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/config"
	"github.com/dmitrijs2005/paydesk/internal/server/locks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testApp(redisAddr string) *App {
	return &App{
		config: &config.Config{RedisAddr: redisAddr},
		logger: logging.NewZapLogger(zap.NewNop()),
	}
}

func TestNewLocker_InProcessWithoutRedis(t *testing.T) {
	app := testApp("")

	l, err := app.newLocker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &locks.KeyedMutex{}, l)
	assert.Nil(t, app.redis)
}

func TestNewLocker_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	app := testApp(mr.Addr())

	l, err := app.newLocker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &locks.RedisLocker{}, l)
	require.NotNil(t, app.redis)
	t.Cleanup(func() { _ = app.redis.Close() })

	unlock, err := l.Lock(context.Background(), "user:a@b.c")
	require.NoError(t, err)
	unlock()
}

func TestNewLocker_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := testApp(addr).newLocker(context.Background())
	assert.Error(t, err)
}

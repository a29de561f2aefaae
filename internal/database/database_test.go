package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.Equal(t, RedisClientName, client.Options().ClientName)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	value, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", value)
}

func TestConnectRedisRejectsBadURLs(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestOpenSQLiteAndRejectUnknownDriver(t *testing.T) {
	db, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, sqlDB.Close())

	_, err = Open("mysql", "dsn")
	require.Error(t, err)

	_, err = ConnectPostgres("")
	require.Error(t, err)
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "waqf-api")
	require.Error(t, err)
}

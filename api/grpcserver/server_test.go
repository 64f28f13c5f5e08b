package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"rbstore/infra/logging"
	"rbstore/infra/metrics"
	"rbstore/service"
)

func startServer(t *testing.T) (*Client, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	svc := service.New(nil, m, logging.Discard())

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewServer(svc, logging.Discard()), m)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), m
}

func TestServerPutGetOverGRPC(t *testing.T) {
	c, m := startServer(t)
	ctx := context.Background()

	_, _, found, err := c.Get(ctx, []byte("random"))
	require.NoError(t, err)
	assert.False(t, found)

	v1, err := c.Put(ctx, []byte("test"), []byte("first"))
	require.NoError(t, err)
	_, err = c.Put(ctx, []byte("test2"), []byte("second"))
	require.NoError(t, err)
	v3, err := c.Put(ctx, []byte("test"), []byte("changed!"))
	require.NoError(t, err)
	assert.Greater(t, v3, v1)

	val, version, found, err := c.Get(ctx, []byte("test"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "changed!", string(val))
	assert.Equal(t, v3, version)

	val, _, found, err = c.Get(ctx, []byte("test2"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", string(val))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Entries)
	assert.Equal(t, uint64(3), st.LastVersion)

	// one latency series per method: Get, Put, Stats
	assert.Equal(t, 3, testutil.CollectAndCount(m.RPCTimes))
}

func TestServerEmptyKeyAndValueArePresent(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	_, err := c.Put(ctx, []byte{}, []byte{})
	require.NoError(t, err)

	val, _, found, err := c.Get(ctx, []byte{})
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, val)

	_, _, found, err = c.Get(ctx, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestServerRejectsMissingArguments(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	_, err := c.Put(ctx, nil, []byte("v"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Put(ctx, []byte("k"), nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
}

func TestCodecPreservesPresence(t *testing.T) {
	var c codec
	b, err := c.Marshal(&PutRequest{Key: []byte{}, Value: []byte("v")})
	require.NoError(t, err)

	var out PutRequest
	require.NoError(t, c.Unmarshal(b, &out))
	assert.NotNil(t, out.Key)
	assert.Empty(t, out.Key)
	assert.Equal(t, []byte("v"), out.Value)

	b, err = c.Marshal(&PutRequest{Value: []byte("v")})
	require.NoError(t, err)
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Nil(t, out.Key)

	_, err = c.Marshal("not a message")
	assert.Error(t, err)
}

package pg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/ast"
)

func fakePool(t *testing.T, fs *fakeServer) *Pool {
	t.Helper()
	host, port := fs.addr()
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.User = "tester"
	cfg.Database = "testdb"
	cfg.MaxConnections = 2
	cfg.ConnectTimeout = 5 * time.Second

	pool, err := NewPool(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPoolFetchAll(t *testing.T) {
	fs := startFakeServer(t)
	pool := fakePool(t, fs)

	cmd := ast.Get("users").ColumnNames("id", "email").WithLimit(2)
	rows, err := pool.FetchAll(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a@x", rows[0].String(1))

	inUse, idle := pool.Stats()
	assert.Equal(t, 0, inUse)
	assert.Equal(t, 1, idle, "connection returned after FetchAll")
}

func TestPoolExecStatement(t *testing.T) {
	fs := startFakeServer(t)
	pool := fakePool(t, fs)

	n, err := pool.ExecStatement(context.Background(), ast.Get("users").WithLimit(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestPoolPipeline(t *testing.T) {
	fs := startFakeServer(t)
	pool := fakePool(t, fs)

	results, err := pool.Pipeline(context.Background(), []*ast.Statement{
		ast.Get("users").WithLimit(2),
		ast.Get("users").WithLimit(2),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Rows, 2)
}

func TestPoolMinConnectionsEager(t *testing.T) {
	fs := startFakeServer(t)
	host, port := fs.addr()
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.MinConnections = 2
	cfg.MaxConnections = 4

	pool, err := NewPool(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	inUse, idle := pool.Stats()
	assert.Equal(t, 0, inUse)
	assert.Equal(t, 2, idle, "min connections opened eagerly")
}

func TestRowAccessors(t *testing.T) {
	row := Row{
		Columns: []ColumnDesc{{Name: "id"}, {Name: "score"}, {Name: "ok"}, {Name: "gone"}},
		Values:  [][]byte{[]byte("42"), []byte("1.5"), []byte("t"), nil},
	}
	assert.Equal(t, int64(42), row.Int(0))
	assert.Equal(t, 1.5, row.Float(1))
	assert.True(t, row.Bool(2))
	assert.True(t, row.IsNull(3))
	assert.Equal(t, "", row.String(3))
	assert.Equal(t, 1, row.Index("score"))
	assert.Equal(t, -1, row.Index("missing"))
}

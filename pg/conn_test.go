package pg

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks just enough of the backend protocol to exercise the
// client: trust auth, canned row responses for extended queries, canned
// tags for simple queries, and an injected notification.
type fakeServer struct {
	ln net.Listener
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fs := &fakeServer{ln: ln}
	go fs.serve()
	t.Cleanup(func() { ln.Close() })
	return fs
}

func (fs *fakeServer) addr() (string, int) {
	a := fs.ln.Addr().(*net.TCPAddr)
	return a.IP.String(), a.Port
}

func (fs *fakeServer) serve() {
	for {
		conn, err := fs.ln.Accept()
		if err != nil {
			return
		}
		go fs.handle(conn)
	}
}

func backendRowDescription(cols ...string) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, uint16(len(cols)))
	for _, col := range cols {
		body = append(body, col...)
		body = append(body, 0)
		body = binary.BigEndian.AppendUint32(body, 0)  // table OID
		body = binary.BigEndian.AppendUint16(body, 0)  // attnum
		body = binary.BigEndian.AppendUint32(body, 25) // text OID
		body = binary.BigEndian.AppendUint16(body, 0xFFFF)
		body = binary.BigEndian.AppendUint32(body, 0xFFFFFFFF)
		body = binary.BigEndian.AppendUint16(body, 0) // text format
	}
	return appendMsg(nil, msgRowDescription, body)
}

func backendDataRow(values ...string) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, uint16(len(values)))
	for _, v := range values {
		body = binary.BigEndian.AppendUint32(body, uint32(len(v)))
		body = append(body, v...)
	}
	return appendMsg(nil, msgDataRow, body)
}

func backendCommandComplete(tag string) []byte {
	return appendMsg(nil, msgCommandComplete, append([]byte(tag), 0))
}

func backendReady(status byte) []byte {
	return appendMsg(nil, msgReadyForQuery, []byte{status})
}

func backendNotification(pid uint32, channel, payload string) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint32(body, pid)
	body = append(body, channel...)
	body = append(body, 0)
	body = append(body, payload...)
	body = append(body, 0)
	return appendMsg(nil, msgNotification, body)
}

func (fs *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	// Startup: length-framed, no type byte.
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return
	}
	rest := make([]byte, binary.BigEndian.Uint32(lenBuf[:])-4)
	if _, err := io.ReadFull(conn, rest); err != nil {
		return
	}

	var out []byte
	out = appendMsg(out, msgAuthentication, []byte{0, 0, 0, 0}) // AuthenticationOk
	var keyData []byte
	keyData = binary.BigEndian.AppendUint32(keyData, 4242)
	keyData = binary.BigEndian.AppendUint32(keyData, 7777)
	out = appendMsg(out, msgBackendKeyData, keyData)
	out = append(out, backendReady('I')...)
	if _, err := conn.Write(out); err != nil {
		return
	}

	execCount := 0
	for {
		var hdr [5]byte
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			return
		}
		payload := make([]byte, binary.BigEndian.Uint32(hdr[1:5])-4)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		switch hdr[0] {
		case msgParse:
			conn.Write(appendMsg(nil, msgParseComplete, nil))
		case msgBind:
			conn.Write(appendMsg(nil, msgBindComplete, nil))
		case msgDescribe:
			conn.Write(backendRowDescription("id", "email"))
		case msgExecute:
			execCount++
			var out []byte
			out = append(out, backendDataRow("1", "a@x")...)
			out = append(out, backendDataRow("2", "b@x")...)
			out = append(out, backendCommandComplete("SELECT 2")...)
			conn.Write(out)
		case msgSync:
			conn.Write(backendReady('I'))
		case msgQuery:
			var out []byte
			out = append(out, backendNotification(99, "jobs", "payload-1")...)
			out = append(out, backendCommandComplete("UPDATE 3")...)
			out = append(out, backendReady('I')...)
			conn.Write(out)
		case msgTerminate:
			return
		}
	}
}

func dialFake(t *testing.T, fs *fakeServer) *Conn {
	t.Helper()
	host, port := fs.addr()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Connect(ctx, host, port, "tester", "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnStartupAndQuery(t *testing.T) {
	fs := startFakeServer(t)
	conn := dialFake(t, fs)

	pid, key := conn.BackendKey()
	assert.Equal(t, uint32(4242), pid)
	assert.Equal(t, uint32(7777), key)

	rows, err := conn.Query("SELECT id, email FROM users")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].String(0))
	assert.Equal(t, "a@x", rows[0].String(1))
	assert.Equal(t, "email", rows[0].Columns[1].Name)
	assert.Equal(t, uint32(25), rows[0].Columns[0].TypeOID)
}

// After a complete ReadyForQuery, the connection is immediately usable for
// the next query: no orphan bytes in the read buffer.
func TestConnUsableAfterEachQuery(t *testing.T) {
	fs := startFakeServer(t)
	conn := dialFake(t, fs)

	for i := 0; i < 3; i++ {
		rows, err := conn.Query("SELECT id, email FROM users")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	}
	assert.Equal(t, byte('I'), conn.Status())
}

func TestConnExecuteAndNotificationStash(t *testing.T) {
	fs := startFakeServer(t)
	conn := dialFake(t, fs)

	affected, err := conn.Execute("UPDATE users SET active = false")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), affected)

	// The notification delivered mid-response was stashed, not lost.
	n, ok, err := conn.RecvNotification(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(99), n.ProcessID)
	assert.Equal(t, "jobs", n.Channel)
	assert.Equal(t, "payload-1", n.Payload)

	_, ok, err = conn.RecvNotification(0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnQueryCachedParsesOnce(t *testing.T) {
	fs := startFakeServer(t)
	conn := dialFake(t, fs)

	_, err := conn.QueryCached("SELECT id, email FROM users WHERE id = $1", []byte("1"))
	require.NoError(t, err)
	name := stmtName("SELECT id, email FROM users WHERE id = $1")
	assert.Contains(t, conn.prepared, name)

	_, err = conn.QueryCached("SELECT id, email FROM users WHERE id = $1", []byte("2"))
	require.NoError(t, err)
	assert.Len(t, conn.prepared, 1)
}

func TestParseErrorResponseFields(t *testing.T) {
	var body []byte
	add := func(code byte, val string) {
		body = append(body, code)
		body = append(body, val...)
		body = append(body, 0)
	}
	add('S', "ERROR")
	add('C', "23505")
	add('M', "duplicate key value")
	add('D', "Key (email) already exists.")
	add('H', "try another email")
	add('P', "15")
	body = append(body, 0)

	se := parseErrorResponse(body)
	assert.Equal(t, "ERROR", se.Severity)
	assert.Equal(t, "23505", se.SQLState)
	assert.Equal(t, "duplicate key value", se.Message)
	assert.Equal(t, "Key (email) already exists.", se.Detail)
	assert.Equal(t, "try another email", se.Hint)
	assert.Equal(t, 15, se.Position)
	assert.Equal(t, "23505", se.Code())
}

func TestStartupMessageLayout(t *testing.T) {
	msg := appendStartup(nil, "alice", "appdb")
	length := binary.BigEndian.Uint32(msg[:4])
	assert.Equal(t, int(length), len(msg))
	assert.Equal(t, uint32(protocolVersion), binary.BigEndian.Uint32(msg[4:8]))
	assert.Contains(t, string(msg), "user\x00alice\x00")
	assert.Contains(t, string(msg), "database\x00appdb\x00")
	assert.Equal(t, byte(0), msg[len(msg)-1])
}

func TestCancelRequestLayout(t *testing.T) {
	msg := appendCancelRequest(nil, 4242, 7777)
	require.Len(t, msg, 16)
	assert.Equal(t, uint32(16), binary.BigEndian.Uint32(msg[0:4]))
	assert.Equal(t, uint32(cancelCode), binary.BigEndian.Uint32(msg[4:8]))
	assert.Equal(t, uint32(4242), binary.BigEndian.Uint32(msg[8:12]))
	assert.Equal(t, uint32(7777), binary.BigEndian.Uint32(msg[12:16]))
}

func TestSSLRequestLayout(t *testing.T) {
	msg := appendSSLRequest(nil)
	require.Len(t, msg, 8)
	assert.Equal(t, uint32(8), binary.BigEndian.Uint32(msg[0:4]))
	assert.Equal(t, uint32(sslRequestCode), binary.BigEndian.Uint32(msg[4:8]))
}

package bridge

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannystaple/rp2040pio-emulator/membus"
	"github.com/dannystaple/rp2040pio-emulator/mmr"
)

type regFacade struct {
	base uint32
	reg  uint32
}

func (f *regFacade) Label() string             { return "REG" }
func (f *regFacade) Provides(addr uint32) bool { return addr == f.base }
func (f *regFacade) Read(addr uint32) uint32   { return f.reg }
func (f *regFacade) Write(addr uint32, v uint32) { f.reg = v }

var _ mmr.Facade = (*regFacade)(nil)

func newTestServer() (*Server, *regFacade) {
	bus := membus.NewAddressBus()
	f := &regFacade{base: 0x1000}
	bus.Register(f)
	return NewServer(bus, nil), f
}

func TestDispatchVersionHelpAndQuit(t *testing.T) {
	s, _ := newTestServer()

	resp, closeConn := s.dispatch("v")
	assert.Contains(t, resp, "101 OK")
	assert.False(t, closeConn)

	resp, closeConn = s.dispatch("h")
	assert.Contains(t, resp, "101 OK")
	assert.False(t, closeConn)

	resp, closeConn = s.dispatch("q")
	assert.Equal(t, "100 BYE", resp)
	assert.True(t, closeConn)
}

func TestDispatchUnknownCommand(t *testing.T) {
	s, _ := newTestServer()
	resp, closeConn := s.dispatch("zzz")
	assert.Equal(t, "400 UNKNOWN COMMAND", resp)
	assert.False(t, closeConn)

	resp, _ = s.dispatch("")
	assert.Equal(t, "400 UNKNOWN COMMAND", resp)
}

func TestDispatchReadWriteRoundTrip(t *testing.T) {
	s, f := newTestServer()

	resp, _ := s.dispatch("w 0x1000 0xdeadbeef")
	assert.Equal(t, "101 OK", resp)
	assert.Equal(t, uint32(0xdeadbeef), f.reg)

	resp, _ = s.dispatch("r 4096") // decimal form of 0x1000
	assert.Equal(t, fmt.Sprintf("101 OK: %d", uint32(0xdeadbeef)), resp)
}

func TestDispatchMissingAndExtraOperands(t *testing.T) {
	s, _ := newTestServer()

	resp, _ := s.dispatch("r")
	assert.Equal(t, "401 MISSING OPERAND", resp)

	resp, _ = s.dispatch("r 0x1000 0x2000")
	assert.Equal(t, "402 UNPARSED INPUT", resp)

	resp, _ = s.dispatch("r not-a-number")
	assert.Equal(t, "403 NUMBER EXPECTED", resp)
}

func TestDispatchWaitReportsUnexpectedOnTimeout(t *testing.T) {
	s, _ := newTestServer()
	resp, _ := s.dispatch("i 0x1000 1 1 2")
	assert.Contains(t, resp, "404 UNEXPECTED")
}

func TestDispatchProvidesAndLabel(t *testing.T) {
	s, _ := newTestServer()

	resp, _ := s.dispatch("p 0x1000")
	assert.Equal(t, "101 OK: true", resp)

	resp, _ = s.dispatch("p 0x9999")
	assert.Equal(t, "101 OK: false", resp)

	resp, _ = s.dispatch("l 0x1000")
	assert.Equal(t, "101 OK: REG", resp)
}

func TestParseU32HexAndDecimal(t *testing.T) {
	v, err := parseU32("0x1A")
	require.NoError(t, err)
	assert.Equal(t, uint32(26), v)

	v, err = parseU32("0X1a")
	require.NoError(t, err)
	assert.Equal(t, uint32(26), v)

	v, err = parseU32("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	_, err = parseU32("0xzz")
	assert.Error(t, err)
}

// TestServeEndToEnd is scenario E4: a real TCP client writes then reads a
// register over the wire.
func TestServeEndToEnd(t *testing.T) {
	s, _ := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Serve(ctx, ln)
		close(done)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	reader := bufio.NewReader(conn)

	fmt.Fprintf(conn, "w 0x1000 123\n")
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "101 OK\n", line)

	fmt.Fprintf(conn, "r 0x1000\n")
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "101 OK: 123\n", line)

	fmt.Fprintf(conn, "q\n")
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "100 BYE\n", line)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

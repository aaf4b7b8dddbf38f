// Package bridge implements component K (spec.md §4.K): a line-oriented
// TCP protocol that exposes a membus.AddressBus to out-of-process
// clients exactly as if they were talking to the MMR facade directly,
// so replacement SDK bindings in other languages can drive the emulator
// without linking against it.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/sync/errgroup"

	"github.com/dannystaple/rp2040pio-emulator/membus"
)

// Version is reported by the `v` command.
const Version = "rp2040pio-emulator-bridge/1.0"

// Server is the TCP bridge: one accept loop, one goroutine per
// connection, per spec.md §4.K's concurrency note — no state is shared
// between connections beyond the bus itself. The bus takes no lock; the
// PIO facades behind it serialize each access on their block's Mu.
//
// Grounded on the teacher's goroutine-per-connection shape (seen across
// the pack's network-facing example repos, none of which the teacher
// itself has — this component is new) and on golang.org/x/sync/errgroup
// for supervising the listener and its spawned connection handlers
// together, the same pattern other_examples/ network servers use for
// graceful shutdown.
type Server struct {
	Bus *membus.AddressBus
	Log *slog.Logger

	listener net.Listener
}

// NewServer returns a bridge ready to Serve on a listener the caller
// supplies (via ListenAndServe) or provides directly (via Serve).
func NewServer(bus *membus.AddressBus, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Bus: bus, Log: log}
}

// ListenAndServe listens on addr (e.g. ":1088") and serves until ctx is
// canceled or a fatal accept error occurs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, spawning one
// goroutine per connection via an errgroup so a single misbehaving
// client can't take the whole server down with it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.listener = ln
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.Log.Error("bridge: accept failed", "error", err)
			return group.Wait()
		}
		group.Go(func() error {
			s.handleConn(ctx, conn)
			return nil
		})
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	s.Log.Info("bridge: client connected", "remote", remote)
	defer s.Log.Info("bridge: client disconnected", "remote", remote)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		resp, closeAfter := s.dispatch(line)
		if _, err := fmt.Fprintf(conn, "%s\n", resp); err != nil {
			s.Log.Warn("bridge: write failed", "remote", remote, "error", err)
			return
		}
		if closeAfter {
			return
		}
	}
}

// dispatch parses and executes one request line. It takes no lock of its
// own; the only locking is the per-call Block.Mu inside the facades the
// bus dispatches to, so no lock is held during the socket read/write
// around it (spec.md §4.K concurrency note).
func (s *Server) dispatch(line string) (response string, closeConn bool) {
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		return "400 UNKNOWN COMMAND", false
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "v":
		return "101 OK: " + Version, false
	case "h", "?":
		return "101 OK: v h ? q p l r w i", false
	case "q":
		return "100 BYE", true
	case "p":
		return s.cmdProvides(rest)
	case "l":
		return s.cmdLabel(rest)
	case "r":
		return s.cmdRead(rest)
	case "w":
		return s.cmdWrite(rest)
	case "i":
		return s.cmdWait(rest)
	default:
		return "400 UNKNOWN COMMAND", false
	}
}

func (s *Server) cmdProvides(args []string) (string, bool) {
	if len(args) < 1 {
		return "401 MISSING OPERAND", false
	}
	if len(args) > 1 {
		return "402 UNPARSED INPUT", false
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "403 NUMBER EXPECTED", false
	}
	ok := s.Bus.Label(addr) != ""
	return fmt.Sprintf("101 OK: %t", ok), false
}

func (s *Server) cmdLabel(args []string) (string, bool) {
	if len(args) < 1 {
		return "401 MISSING OPERAND", false
	}
	if len(args) > 1 {
		return "402 UNPARSED INPUT", false
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "403 NUMBER EXPECTED", false
	}
	return "101 OK: " + s.Bus.Label(addr), false
}

func (s *Server) cmdRead(args []string) (string, bool) {
	if len(args) < 1 {
		return "401 MISSING OPERAND", false
	}
	if len(args) > 1 {
		return "402 UNPARSED INPUT", false
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "403 NUMBER EXPECTED", false
	}
	return fmt.Sprintf("101 OK: %d", s.Bus.Read(addr)), false
}

func (s *Server) cmdWrite(args []string) (string, bool) {
	if len(args) < 2 {
		return "401 MISSING OPERAND", false
	}
	if len(args) > 2 {
		return "402 UNPARSED INPUT", false
	}
	addr, err := parseU32(args[0])
	if err != nil {
		return "403 NUMBER EXPECTED", false
	}
	value, err := parseU32(args[1])
	if err != nil {
		return "403 NUMBER EXPECTED", false
	}
	s.Bus.Write(addr, value)
	return "101 OK", false
}

func (s *Server) cmdWait(args []string) (string, bool) {
	if len(args) < 2 {
		return "401 MISSING OPERAND", false
	}
	if len(args) > 5 {
		return "402 UNPARSED INPUT", false
	}
	nums := make([]uint32, 0, len(args))
	for _, a := range args {
		v, err := parseU32(a)
		if err != nil {
			return "403 NUMBER EXPECTED", false
		}
		nums = append(nums, v)
	}
	addr, expected := nums[0], nums[1]
	mask := uint32(0xffffffff)
	if len(nums) > 2 {
		mask = nums[2]
	}
	cyclesTimeout, millisTimeout := 0, 0
	if len(nums) > 3 {
		cyclesTimeout = int(nums[3])
	}
	if len(nums) > 4 {
		millisTimeout = int(nums[4])
	}
	if err := s.Bus.Wait(context.Background(), addr, expected, mask, cyclesTimeout, millisTimeout); err != nil {
		return "404 UNEXPECTED: " + err.Error(), false
	}
	return fmt.Sprintf("101 OK: %d", s.Bus.Read(addr)), false
}

// parseU32 accepts plain decimal or 0x-prefixed hexadecimal, matching the
// addr/value/expected arguments spec.md's example session E4/E6 use.
func parseU32(s string) (uint32, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		v, err := strconv.ParseUint(rest, 16, 32)
		return uint32(v), err
	}
	if rest, ok := strings.CutPrefix(s, "0X"); ok {
		v, err := strconv.ParseUint(rest, 16, 32)
		return uint32(v), err
	}
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

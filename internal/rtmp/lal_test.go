package rtmp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	lalrtmp "github.com/q191201771/lal/pkg/rtmp"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// silentServer accepts TCP connections and never answers the handshake
type silentServer struct {
	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

func newSilentServer(t *testing.T) *silentServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &silentServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range s.conns {
			_ = c.Close()
		}
	})
	return s
}

func (s *silentServer) uri() string {
	return "rtmp://" + s.ln.Addr().String() + "/live/key"
}

func TestLALTransport_RejectsUndialableInput(t *testing.T) {
	tr := NewLALTransport(quietLogger)

	tests := []struct {
		name string
		uri  string
		opts Options
	}{
		{"tunnelled scheme", "rtmpt://127.0.0.1/live/key", testOptions},
		{"encrypted scheme", "rtmpe://127.0.0.1/live/key", testOptions},
		{"rtmfp", "rtmfp://127.0.0.1/live/key", testOptions},
		{"empty identifier", "rtmp://127.0.0.1/live/key", Options{Timeout: time.Second}},
		{"timeout too large", "rtmp://127.0.0.1/live/key", Options{Identifier: "x", Timeout: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := tr.Connect(context.Background(), tt.uri, tt.opts)
			if !errors.Is(err, ErrOptionRejected) {
				t.Errorf("Connect() = %v, want ErrOptionRejected", err)
			}
			if conn != nil {
				t.Error("Connect() returned a connection on error")
			}
		})
	}
}

func TestLALTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	tr := NewLALTransport(quietLogger)
	_, err = tr.Connect(context.Background(), "rtmp://"+addr+"/live/key", testOptions)
	if err == nil {
		t.Fatal("expected error dialling a closed port")
	}
	if errors.Is(err, ErrOptionRejected) {
		t.Errorf("Connect() = %v, refusal must not be an option rejection", err)
	}
}

func TestLALTransport_ConnectHonoursContext(t *testing.T) {
	server := newSilentServer(t)
	tr := NewLALTransport(quietLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Connect(ctx, server.uri()+" live=1", Options{Identifier: "test/1.0", Timeout: 10 * time.Second})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Connect() returned after %v, should follow the context", elapsed)
	}
}

func TestLALConn_WriteAndClose(t *testing.T) {
	conn := &lalConn{session: lalrtmp.NewPushSession(), uri: "rtmp://127.0.0.1/live/key", logger: quietLogger}

	// Header chunk cut inside its tag: the payload can never be sent
	header := buildTag(18, 0, []byte{0x02, 0x00, 0x0a})
	video := buildTag(9, 40, []byte{0x17, 0x00, 0x00, 0x00, 0x00})
	joined := append(append([]byte(nil), header...), video[:len(video)-3]...)

	if _, err := conn.Write(context.Background(), joined); !errors.Is(err, ErrUnusable) {
		t.Errorf("Write(truncated) = %v, want ErrUnusable", err)
	}
	if _, err := conn.Write(context.Background(), nil); !errors.Is(err, ErrUnusable) {
		t.Errorf("Write(empty) = %v, want ErrUnusable", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := conn.Write(ctx, header); !errors.Is(err, context.Canceled) {
		t.Errorf("Write(cancelled) = %v, want context.Canceled", err)
	}

	_ = conn.Close()
	if err := conn.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if conn.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if _, err := conn.Write(context.Background(), header); !errors.Is(err, ErrUnusable) {
		t.Errorf("Write after Close = %v, want ErrUnusable", err)
	}
}

package httpclient

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestExecutorRunGetsFullResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		c.Read(buf)
		c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	e := NewExecutor()
	resp, err := e.Run(context.Background(), Request{
		Method: "GET",
		Host:   "127.0.0.1",
		Port:   addr.Port,
		Path:   "/",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Fatalf("Body = %q, want hello", resp.Body)
	}
	if e.State() != StateComplete {
		t.Fatalf("State = %v, want StateComplete", e.State())
	}
}

func TestExecutorRunUnreachableHostFails(t *testing.T) {
	e := NewExecutor()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := e.Run(ctx, Request{
		Method:         "GET",
		Host:           "10.255.255.1", // non-routable, should time out rather than connect
		Port:           81,
		Path:           "/",
		ConnectTimeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("Run against an unreachable host should fail")
	}
	if e.State() != StateError {
		t.Fatalf("State = %v, want StateError", e.State())
	}
	if e.Err() == nil {
		t.Fatal("Err() should be non-nil after a failed Run")
	}
}

func TestExecutorRunUntilCloseBody(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		c.Read(buf)
		io.WriteString(c, "HTTP/1.1 200 OK\r\n\r\nstreamed-body")
	}()

	addr := ln.Addr().(*net.TCPAddr)
	e := NewExecutor()
	resp, err := e.Run(context.Background(), Request{
		Method: "GET",
		Host:   "127.0.0.1",
		Port:   addr.Port,
		Path:   "/",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(resp.Body) != "streamed-body" {
		t.Fatalf("Body = %q, want streamed-body", resp.Body)
	}
}

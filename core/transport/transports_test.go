package transport

import (
	"testing"

	"github.com/riftcore/coreserver/core/factory"
)

func TestHTTPServerTransportBindHandlerRegistersAllMethods(t *testing.T) {
	tr := NewHTTPServerTransport(Config{Name: "web"})

	called := false
	tr.BindHandler("/status", func(ctx any) { called = true })

	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"} {
		h, _ := tr.router.Find(method, "/status")
		if h == nil {
			t.Fatalf("method %s not bound at /status", method)
		}
		h(nil)
	}
	if !called {
		t.Fatal("bound handler should have been invoked")
	}
}

func TestTransportsAddUnknownTypeFails(t *testing.T) {
	tp := &Transports{ctors: factory.NewRegistry[ServerTransport](), named: make(map[string]ServerTransport)}
	_, err := tp.Add(Config{Name: "x", Type: "grpc"}, func(ctx any) {})
	if err == nil {
		t.Fatal("Add with unregistered type should fail")
	}
}

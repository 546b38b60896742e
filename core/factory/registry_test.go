package factory

import (
	"errors"
	"testing"
)

type widget struct{ name string }

func TestRegisterThenCreate(t *testing.T) {
	r := NewRegistry[*widget]()
	err := r.Register("basic", func(cfg any) (*widget, error) {
		return &widget{name: cfg.(string)}, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	w, err := r.Create("basic", "foo")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.name != "foo" {
		t.Fatalf("name = %q, want foo", w.name)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	r := NewRegistry[*widget]()
	ctor := func(cfg any) (*widget, error) { return &widget{}, nil }

	if err := r.Register("dup", ctor); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register("dup", ctor); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second Register err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestCreateUnknownKeyFails(t *testing.T) {
	r := NewRegistry[*widget]()
	if _, err := r.Create("missing", nil); err == nil {
		t.Fatal("Create with unregistered key should fail")
	}
}

func TestKeysListsRegistered(t *testing.T) {
	r := NewRegistry[*widget]()
	r.Register("a", func(cfg any) (*widget, error) { return &widget{}, nil })
	r.Register("b", func(cfg any) (*widget, error) { return &widget{}, nil })

	keys := r.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 entries", keys)
	}
}

package dbpool

import "testing"

func TestPoolsAddRegistersUnderName(t *testing.T) {
	pools := NewPools()

	p, err := pools.Add(Config{Name: "main", DbServer: "db.internal", DbPort: 5432, DbName: "app", DbUser: "u", DbPass: "p"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	defer p.Close()

	got, ok := pools.Get("main")
	if !ok || got != p {
		t.Fatal("Get should return the pool just added under its name")
	}
}

func TestPoolsAddUnknownTypeFails(t *testing.T) {
	pools := NewPools()
	_, err := pools.Add(Config{Name: "main", Type: "mysql", DbName: "app"})
	if err == nil {
		t.Fatal("Add with an unregistered Type should fail")
	}
}

func TestPoolsCloseAll(t *testing.T) {
	pools := NewPools()
	p, err := pools.Add(Config{Name: "main", DbName: "app", DbUser: "u", DbPass: "p"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	_ = p

	if err := pools.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if _, ok := pools.Get("main"); ok {
		t.Fatal("CloseAll should clear the named registry")
	}
}

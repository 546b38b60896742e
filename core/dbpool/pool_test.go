package dbpool

import "testing"

func TestConfigDSNUsesSocketWhenSet(t *testing.T) {
	cfg := Config{DbSocket: "/var/run/postgresql", DbName: "app", DbUser: "u", DbPass: "p"}
	dsn := cfg.dsn()
	if !containsAll(dsn, "/var/run/postgresql", "dbname=app", "user=u") {
		t.Fatalf("dsn missing expected fields: %q", dsn)
	}
}

func TestConfigDSNUsesServerPortWhenNoSocket(t *testing.T) {
	cfg := Config{DbServer: "db.internal", DbPort: 5432, DbName: "app", DbUser: "u", DbPass: "p"}
	dsn := cfg.dsn()
	if !containsAll(dsn, "host=db.internal", "port=5432", "dbname=app") {
		t.Fatalf("dsn missing expected fields: %q", dsn)
	}
}

func TestConfigDSNAppendsCanonicalCharset(t *testing.T) {
	cfg := Config{DbServer: "db.internal", DbPort: 5432, DbName: "app", DbUser: "u", DbPass: "p", DbCharset: "utf8"}
	dsn := cfg.dsn()
	if !containsAll(dsn, "client_encoding=UTF-8") {
		t.Fatalf("dsn missing canonical client_encoding: %q", dsn)
	}
}

func TestConfigDSNOmitsUnrecognizedCharset(t *testing.T) {
	cfg := Config{DbServer: "db.internal", DbPort: 5432, DbName: "app", DbUser: "u", DbPass: "p", DbCharset: "not-a-real-charset"}
	dsn := cfg.dsn()
	if contains(dsn, "client_encoding") {
		t.Fatalf("dsn should omit client_encoding for an unrecognized charset: %q", dsn)
	}
}

func TestConfigDSNAppendsTimezoneOptions(t *testing.T) {
	cfg := Config{DbServer: "db.internal", DbPort: 5432, DbName: "app", DbUser: "u", DbPass: "p", DbTimezone: "UTC"}
	dsn := cfg.dsn()
	if !containsAll(dsn, "options='-c TimeZone=UTC'") {
		t.Fatalf("dsn missing timezone options: %q", dsn)
	}
}

func TestConfigDSNOmitsTimezoneWhenUnset(t *testing.T) {
	cfg := Config{DbServer: "db.internal", DbPort: 5432, DbName: "app", DbUser: "u", DbPass: "p"}
	dsn := cfg.dsn()
	if contains(dsn, "TimeZone") {
		t.Fatalf("dsn should omit TimeZone option when DbTimezone unset: %q", dsn)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestAttachDetachBookkeeping(t *testing.T) {
	p := &Pool{captured: make(map[Handle]*conn)}

	c := &conn{}
	p.captured[Handle(1)] = c

	if !p.Attach(Handle(1), Handle(2)) {
		t.Fatal("Attach should succeed when source handle is captured")
	}
	if _, ok := p.captured[Handle(1)]; ok {
		t.Fatal("source handle should no longer be captured after Attach")
	}
	if p.captured[Handle(2)] != c {
		t.Fatal("destination handle should now own the connection")
	}

	got, ok := p.Detach(Handle(2))
	if !ok || got != c.sqlConn {
		t.Fatal("Detach should return the connection and remove the binding")
	}
	if _, ok := p.captured[Handle(2)]; ok {
		t.Fatal("handle should no longer be captured after Detach")
	}
}

func TestAttachFailsForUnknownHandle(t *testing.T) {
	p := &Pool{captured: make(map[Handle]*conn)}
	if p.Attach(Handle(99), Handle(100)) {
		t.Fatal("Attach should fail for an uncaptured source handle")
	}
}

package config

import (
	"encoding/json"
	"time"

	"github.com/riftcore/coreserver/core/dbpool"
	"github.com/riftcore/coreserver/core/transport"
)

// AcceptorConfig is one listening socket a TransportConfig opens,
// matching the "acceptors[]" field recognized by the factory
// configuration object (host, port, tls flag).
type AcceptorConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	TLS  bool   `json:"tls"`
}

// TransportConfig is the factory configuration object for a named
// server transport: a type discriminator plus the recognized
// transport fields (name, type, acceptors[], bindings[]).
type TransportConfig struct {
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	Acceptors []AcceptorConfig `json:"acceptors"`
	Bindings  []string         `json:"bindings"`
}

// ToTransport converts a loaded TransportConfig into the
// core/transport.Config the factory registry actually consumes.
func (c TransportConfig) ToTransport() transport.Config {
	acceptors := make([]transport.AcceptorConfig, len(c.Acceptors))
	for i, a := range c.Acceptors {
		acceptors[i] = transport.AcceptorConfig{Host: a.Host, Port: a.Port, TLS: a.TLS}
	}
	return transport.Config{
		Name:      c.Name,
		Type:      c.Type,
		Acceptors: acceptors,
		Bindings:  c.Bindings,
	}
}

// DbPoolConfig is the factory configuration object for a named DB
// pool: name, type, one of (dbsocket, dbserver+dbport), dbname,
// dbuser, dbpass, optional async, dbcharset, dbtimezone.
type DbPoolConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`

	DbSocket string `json:"dbsocket,omitempty"`
	DbServer string `json:"dbserver,omitempty"`
	DbPort   int    `json:"dbport,omitempty"`

	DbName string `json:"dbname"`
	DbUser string `json:"dbuser"`
	DbPass string `json:"dbpass"`

	// Async is a recognized factory configuration field but has no
	// effect on core/dbpool.Pool: its capture/release model is always
	// synchronous per calling goroutine (see core/dbpool's DESIGN.md
	// entry), so there is no connect-mode this toggles yet.
	Async      bool   `json:"async,omitempty"`
	DbCharset  string `json:"dbcharset,omitempty"`
	DbTimezone string `json:"dbtimezone,omitempty"`

	MaxIdle    int           `json:"max_idle,omitempty"`
	StaleAfter time.Duration `json:"stale_after,omitempty"`
}

// ToDbpool converts a loaded DbPoolConfig into the core/dbpool.Config
// Open actually consumes.
func (c DbPoolConfig) ToDbpool() dbpool.Config {
	return dbpool.Config{
		Name:       c.Name,
		Type:       c.Type,
		DbSocket:   c.DbSocket,
		DbServer:   c.DbServer,
		DbPort:     c.DbPort,
		DbName:     c.DbName,
		DbUser:     c.DbUser,
		DbPass:     c.DbPass,
		DbCharset:  c.DbCharset,
		DbTimezone: c.DbTimezone,
		MaxIdle:    c.MaxIdle,
		StaleAfter: c.StaleAfter,
	}
}

// LoadTransports decodes a JSON array of transport factory
// configuration objects, the on-disk counterpart to the
// flags/env-only Config in config.go — factory *configuration*
// objects are still a recognized input shape even though config file
// *format* loading beyond flags/env is out of scope.
func LoadTransports(raw []byte) ([]TransportConfig, error) {
	var out []TransportConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadDbPools decodes a JSON array of DB pool factory configuration
// objects.
func LoadDbPools(raw []byte) ([]DbPoolConfig, error) {
	var out []DbPoolConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

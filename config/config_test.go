/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/suparena/authstore/storagemodels"
)

var configEnv = []string{
	"AUTHSTORE_BACKEND", "AUTHSTORE_KEYSPACE", "AUTHSTORE_INITIALIZE",
	"AUTHSTORE_USERS_TABLE", "AUTHSTORE_ROLES_TABLE", "AUTHSTORE_PENDING_REG_TABLE",
	"AUTHSTORE_REPLICATION_CLASS", "AUTHSTORE_REPLICATION_FACTOR", "AUTHSTORE_REPLICATION_DATACENTERS",
	"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY", "AWS_SECRET_KEY",
	"AUTHSTORE_DYNAMODB_ENDPOINT", "DDB_ENDPOINT", "AUTHSTORE_DYNAMODB_WAIT_TIMEOUT",
	"AUTHSTORE_PEBBLE_PATH", "AUTHSTORE_PEBBLE_CACHE_SIZE", "AUTHSTORE_LOG_LEVEL", "LOG_LEVEL",
}

// clearEnv blanks every variable the loader reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", noEnvFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend != BackendMemory {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendMemory)
	}
	if cfg.Keyspace != "auth" {
		t.Errorf("Keyspace = %q, want auth", cfg.Keyspace)
	}
	if !cfg.Initialize {
		t.Error("Initialize should default to true")
	}
	if cfg.Tables.Users != "users" || cfg.Tables.Roles != "roles" || cfg.Tables.PendingRegistrations != "register" {
		t.Errorf("Tables = %+v", cfg.Tables)
	}
	if cfg.DynamoDB.WaitTimeout != 5*time.Minute {
		t.Errorf("DynamoDB.WaitTimeout = %v, want 5m", cfg.DynamoDB.WaitTimeout)
	}
	if cfg.Pebble.CacheSize != 64<<20 {
		t.Errorf("Pebble.CacheSize = %d", cfg.Pebble.CacheSize)
	}

	policy, err := cfg.ReplicationPolicy()
	if err != nil {
		t.Fatalf("ReplicationPolicy() error = %v", err)
	}
	if policy.Class != storagemodels.ReplicationSimple || policy.Factor != 1 {
		t.Errorf("policy = %+v, want simple/1", policy)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "authstore.yaml", `
backend: pebble
keyspace: prod
tables:
  users: accounts
replication:
  class: network_topology
  datacenters:
    us-east-1: 3
    eu-west-1: 2
pebble:
  path: /var/lib/authstore
dynamodb:
  wait_timeout: 90s
`)
	t.Setenv("AUTHSTORE_KEYSPACE", "staging")

	cfg, err := Load(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend != BackendPebble {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.Keyspace != "staging" {
		t.Errorf("environment should override the file, Keyspace = %q", cfg.Keyspace)
	}
	if cfg.Tables.Users != "accounts" || cfg.Tables.Roles != "roles" {
		t.Errorf("Tables = %+v", cfg.Tables)
	}
	if cfg.Pebble.Path != "/var/lib/authstore" {
		t.Errorf("Pebble.Path = %q", cfg.Pebble.Path)
	}
	if cfg.DynamoDB.WaitTimeout != 90*time.Second {
		t.Errorf("DynamoDB.WaitTimeout = %v", cfg.DynamoDB.WaitTimeout)
	}

	policy, err := cfg.ReplicationPolicy()
	if err != nil {
		t.Fatalf("ReplicationPolicy() error = %v", err)
	}
	if policy.Class != storagemodels.ReplicationNetworkTopology {
		t.Errorf("policy class = %v", policy.Class)
	}
	if got := policy.Datacenters(); len(got) != 2 || got[0] != "eu-west-1" || got[1] != "us-east-1" {
		t.Errorf("Datacenters() = %v", got)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("AUTHSTORE_ROLES_TABLE")
	os.Unsetenv("AUTHSTORE_REPLICATION_DATACENTERS")
	t.Cleanup(func() {
		os.Unsetenv("AUTHSTORE_ROLES_TABLE")
		os.Unsetenv("AUTHSTORE_REPLICATION_DATACENTERS")
	})

	envFile := writeFile(t, "test.env", `
AUTHSTORE_ROLES_TABLE=role_levels
AUTHSTORE_REPLICATION_DATACENTERS=dc1:3, dc2:1
`)

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tables.Roles != "role_levels" {
		t.Errorf("Tables.Roles = %q", cfg.Tables.Roles)
	}
	if cfg.Replication.Datacenters["dc1"] != 3 || cfg.Replication.Datacenters["dc2"] != 1 {
		t.Errorf("Datacenters = %v", cfg.Replication.Datacenters)
	}
}

func TestLoad_AlternateEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTHSTORE_BACKEND", "dynamodb")
	t.Setenv("AWS_ACCESS_KEY", "AKIA")
	t.Setenv("AWS_SECRET_KEY", "secret")
	t.Setenv("DDB_ENDPOINT", "http://localhost:8000")

	cfg, err := Load("", noEnvFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DynamoDB.AccessKey != "AKIA" || cfg.DynamoDB.SecretKey != "secret" {
		t.Errorf("credentials not read from alternate names: %+v", cfg.DynamoDB)
	}
	if cfg.DynamoDB.Endpoint != "http://localhost:8000" {
		t.Errorf("Endpoint = %q", cfg.DynamoDB.Endpoint)
	}
	if strings.Contains(cfg.String(), "secret") {
		t.Errorf("String() leaks the secret key: %s", cfg.String())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad_int", "AUTHSTORE_REPLICATION_FACTOR", "three"},
		{"bad_bool", "AUTHSTORE_INITIALIZE", "maybe"},
		{"bad_duration", "AUTHSTORE_DYNAMODB_WAIT_TIMEOUT", "soon"},
		{"bad_datacenters", "AUTHSTORE_REPLICATION_DATACENTERS", "dc1=3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)

			if _, err := Load("", noEnvFile(t)); err == nil {
				t.Errorf("Load() with %s=%q should fail", tc.key, tc.val)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t)); err == nil {
		t.Error("an explicit config file must exist")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Backend:  "cassandra",
		Keyspace: "",
		Tables:   TablesConfig{Users: "t", Roles: "t", PendingRegistrations: ""},
		Replication: ReplicationConfig{
			Class:  "simple",
			Factor: 0,
		},
		Logging: LoggingConfig{Level: "loud"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{
		"AUTHSTORE_BACKEND",
		"AUTHSTORE_KEYSPACE",
		"share table",
		"pending_registrations",
		"replication",
		"AUTHSTORE_LOG_LEVEL",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q:\n%v", want, err)
		}
	}
}

func TestValidate_DynamoDBCredentialsPaired(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTHSTORE_BACKEND", "dynamodb")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")

	_, err := Load("", noEnvFile(t))
	if err == nil || !strings.Contains(err.Error(), "set together") {
		t.Errorf("expected paired credential error, got %v", err)
	}
}

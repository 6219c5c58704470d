/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads backend settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/suparena/authstore/storagemodels"
)

// Backend names accepted in Config.Backend.
const (
	BackendDynamoDB = "dynamodb"
	BackendPebble   = "pebble"
	BackendMemory   = "memory"
)

// Config holds all backend configuration.
type Config struct {
	// Backend selects the storage driver: dynamodb, pebble or memory (default: memory)
	Backend string `yaml:"backend" env:"AUTHSTORE_BACKEND" default:"memory"`

	// Keyspace groups the entity tables (default: auth)
	Keyspace string `yaml:"keyspace" env:"AUTHSTORE_KEYSPACE" default:"auth"`

	// Initialize creates the keyspace and tables on open (default: true)
	Initialize bool `yaml:"initialize" env:"AUTHSTORE_INITIALIZE" default:"true"`

	Tables      TablesConfig      `yaml:"tables"`
	Replication ReplicationConfig `yaml:"replication"`
	DynamoDB    DynamoDBConfig    `yaml:"dynamodb"`
	Pebble      PebbleConfig      `yaml:"pebble"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// TablesConfig names the physical tables.
type TablesConfig struct {
	Users                string `yaml:"users" env:"AUTHSTORE_USERS_TABLE" default:"users"`
	Roles                string `yaml:"roles" env:"AUTHSTORE_ROLES_TABLE" default:"roles"`
	PendingRegistrations string `yaml:"pending_registrations" env:"AUTHSTORE_PENDING_REG_TABLE" default:"register"`
}

// ReplicationConfig describes the keyspace replication policy.
type ReplicationConfig struct {
	// Class is simple or network_topology (default: simple)
	Class string `yaml:"class" env:"AUTHSTORE_REPLICATION_CLASS" default:"simple"`

	// Factor is the simple replication factor (default: 1)
	Factor int `yaml:"factor" env:"AUTHSTORE_REPLICATION_FACTOR" default:"1"`

	// Datacenters maps datacenter (AWS region) to factor for network_topology,
	// written as "dc1:3,dc2:2" in the environment
	Datacenters map[string]int `yaml:"datacenters" env:"AUTHSTORE_REPLICATION_DATACENTERS"`
}

// DynamoDBConfig holds the DynamoDB client settings.
type DynamoDBConfig struct {
	Region    string `yaml:"region" env:"AWS_REGION" default:"us-east-1"`
	AccessKey string `yaml:"access_key" env:"AWS_ACCESS_KEY_ID" envAlt:"AWS_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"AWS_SECRET_ACCESS_KEY" envAlt:"AWS_SECRET_KEY"`

	// Endpoint overrides the service endpoint, e.g. DynamoDB Local
	Endpoint string `yaml:"endpoint" env:"AUTHSTORE_DYNAMODB_ENDPOINT" envAlt:"DDB_ENDPOINT"`

	// WaitTimeout bounds table creation and deletion (default: 5m)
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"AUTHSTORE_DYNAMODB_WAIT_TIMEOUT" default:"5m"`
}

// PebbleConfig holds the embedded store settings.
type PebbleConfig struct {
	Path string `yaml:"path" env:"AUTHSTORE_PEBBLE_PATH" default:"authstore-data"`

	// CacheSize is the block cache size in bytes (default: 64MB)
	CacheSize int64 `yaml:"cache_size" env:"AUTHSTORE_PEBBLE_CACHE_SIZE" default:"67108864"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error (default: info)
	Level string `yaml:"level" env:"AUTHSTORE_LOG_LEVEL" envAlt:"LOG_LEVEL" default:"info"`
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.Backend {
	case BackendDynamoDB:
		if c.DynamoDB.Region == "" {
			errs = append(errs, "AWS_REGION is required for the dynamodb backend")
		}
		if (c.DynamoDB.AccessKey == "") != (c.DynamoDB.SecretKey == "") {
			errs = append(errs, "AWS access key and secret key must be set together")
		}
		if c.DynamoDB.WaitTimeout <= 0 {
			errs = append(errs, "AUTHSTORE_DYNAMODB_WAIT_TIMEOUT must be positive")
		}
	case BackendPebble:
		if c.Pebble.Path == "" {
			errs = append(errs, "AUTHSTORE_PEBBLE_PATH is required for the pebble backend")
		}
		if c.Pebble.CacheSize <= 0 {
			errs = append(errs, "AUTHSTORE_PEBBLE_CACHE_SIZE must be positive")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("AUTHSTORE_BACKEND %q must be one of dynamodb, pebble, memory", c.Backend))
	}

	if c.Keyspace == "" {
		errs = append(errs, "AUTHSTORE_KEYSPACE is required")
	}
	tables := map[string]string{
		"users":                 c.Tables.Users,
		"roles":                 c.Tables.Roles,
		"pending_registrations": c.Tables.PendingRegistrations,
	}
	seen := make(map[string]string)
	for _, name := range []string{"users", "roles", "pending_registrations"} {
		table := tables[name]
		if table == "" {
			errs = append(errs, fmt.Sprintf("table name for %s is required", name))
			continue
		}
		if other, dup := seen[table]; dup {
			errs = append(errs, fmt.Sprintf("%s and %s share table %q", other, name, table))
		}
		seen[table] = name
	}

	if _, err := c.ReplicationPolicy(); err != nil {
		errs = append(errs, err.Error())
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("AUTHSTORE_LOG_LEVEL %q must be debug, info, warn or error", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ReplicationPolicy builds the keyspace policy.
func (c *Config) ReplicationPolicy() (storagemodels.ReplicationPolicy, error) {
	class, err := storagemodels.ParseReplicationClass(c.Replication.Class)
	if err != nil {
		return storagemodels.ReplicationPolicy{}, err
	}
	var policy storagemodels.ReplicationPolicy
	if class == storagemodels.ReplicationNetworkTopology {
		policy = storagemodels.NetworkTopologyReplication(c.Replication.Datacenters)
	} else {
		policy = storagemodels.SimpleReplication(c.Replication.Factor)
	}
	if err := policy.Validate(); err != nil {
		return storagemodels.ReplicationPolicy{}, err
	}
	return policy, nil
}

// String renders the config without secrets.
func (c *Config) String() string {
	dcs := make([]string, 0, len(c.Replication.Datacenters))
	for dc, f := range c.Replication.Datacenters {
		dcs = append(dcs, fmt.Sprintf("%s:%d", dc, f))
	}
	sort.Strings(dcs)
	return fmt.Sprintf("backend=%s keyspace=%s replication=%s/%d%v tables=%s,%s,%s",
		c.Backend, c.Keyspace, c.Replication.Class, c.Replication.Factor, dcs,
		c.Tables.Users, c.Tables.Roles, c.Tables.PendingRegistrations)
}

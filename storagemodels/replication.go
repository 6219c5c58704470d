/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"sort"

	"github.com/suparena/authstore/errors"
)

// ReplicationClass selects how a keyspace is replicated.
type ReplicationClass int

const (
	// ReplicationSimple uses a single replication factor for the whole cluster.
	ReplicationSimple ReplicationClass = iota + 1
	// ReplicationNetworkTopology uses a replication factor per datacenter.
	ReplicationNetworkTopology
)

func (c ReplicationClass) String() string {
	switch c {
	case ReplicationSimple:
		return "SimpleStrategy"
	case ReplicationNetworkTopology:
		return "NetworkTopologyStrategy"
	default:
		return fmt.Sprintf("ReplicationClass(%d)", int(c))
	}
}

// ParseReplicationClass maps a configuration string to a ReplicationClass.
func ParseReplicationClass(s string) (ReplicationClass, error) {
	switch s {
	case "simple", "SimpleStrategy":
		return ReplicationSimple, nil
	case "network_topology", "NetworkTopologyStrategy":
		return ReplicationNetworkTopology, nil
	default:
		return 0, errors.NewUnsupportedReplicationPolicyError(s, "expected simple or network_topology")
	}
}

// ReplicationPolicy describes keyspace replication.
type ReplicationPolicy struct {
	Class ReplicationClass
	// Factor applies to ReplicationSimple.
	Factor int
	// DatacenterFactors applies to ReplicationNetworkTopology.
	DatacenterFactors map[string]int
}

// SimpleReplication builds a single-factor policy.
func SimpleReplication(factor int) ReplicationPolicy {
	return ReplicationPolicy{Class: ReplicationSimple, Factor: factor}
}

// NetworkTopologyReplication builds a per-datacenter policy.
func NetworkTopologyReplication(factors map[string]int) ReplicationPolicy {
	cp := make(map[string]int, len(factors))
	for dc, f := range factors {
		cp[dc] = f
	}
	return ReplicationPolicy{Class: ReplicationNetworkTopology, DatacenterFactors: cp}
}

// Validate reports configuration errors as UnsupportedReplicationPolicyError.
func (p ReplicationPolicy) Validate() error {
	switch p.Class {
	case ReplicationSimple:
		if p.Factor < 1 {
			return errors.NewUnsupportedReplicationPolicyError(p.Class.String(), fmt.Sprintf("replication factor must be positive, got %d", p.Factor))
		}
	case ReplicationNetworkTopology:
		if len(p.DatacenterFactors) == 0 {
			return errors.NewUnsupportedReplicationPolicyError(p.Class.String(), "at least one datacenter factor is required")
		}
		for dc, f := range p.DatacenterFactors {
			if dc == "" {
				return errors.NewUnsupportedReplicationPolicyError(p.Class.String(), "datacenter name is empty")
			}
			if f < 0 {
				return errors.NewUnsupportedReplicationPolicyError(p.Class.String(), fmt.Sprintf("negative factor %d for %s", f, dc))
			}
		}
	default:
		return errors.NewUnsupportedReplicationPolicyError(p.Class.String(), "")
	}
	return nil
}

// Datacenters returns datacenters with a positive factor, sorted by name.
func (p ReplicationPolicy) Datacenters() []string {
	dcs := make([]string, 0, len(p.DatacenterFactors))
	for dc, f := range p.DatacenterFactors {
		if f > 0 {
			dcs = append(dcs, dc)
		}
	}
	sort.Strings(dcs)
	return dcs
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/authstore/errors"
)

func TestReplicationPolicyValidate(t *testing.T) {
	require.NoError(t, SimpleReplication(3).Validate())
	require.NoError(t, NetworkTopologyReplication(map[string]int{"dc1": 3, "dc2": 0}).Validate())

	tests := []struct {
		name   string
		policy ReplicationPolicy
	}{
		{name: "zero_factor", policy: SimpleReplication(0)},
		{name: "empty_topology", policy: NetworkTopologyReplication(nil)},
		{name: "negative_dc", policy: NetworkTopologyReplication(map[string]int{"dc1": -1})},
		{name: "blank_dc", policy: NetworkTopologyReplication(map[string]int{"": 2})},
		{name: "unknown_class", policy: ReplicationPolicy{Class: 9, Factor: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			assert.True(t, errors.IsUnsupportedReplicationPolicy(err), "got %v", err)
		})
	}
}

func TestParseReplicationClass(t *testing.T) {
	c, err := ParseReplicationClass("simple")
	require.NoError(t, err)
	assert.Equal(t, ReplicationSimple, c)

	c, err = ParseReplicationClass("NetworkTopologyStrategy")
	require.NoError(t, err)
	assert.Equal(t, ReplicationNetworkTopology, c)

	_, err = ParseReplicationClass("everywhere")
	assert.True(t, errors.IsUnsupportedReplicationPolicy(err))
}

func TestReplicationDatacenters(t *testing.T) {
	p := NetworkTopologyReplication(map[string]int{"us-west-2": 2, "eu-west-1": 3, "ap-south-1": 0})
	assert.Equal(t, []string{"eu-west-1", "us-west-2"}, p.Datacenters())
}

func TestApplyStreamOptions(t *testing.T) {
	opts := ApplyStreamOptions(WithBufferSize(5), WithPageSize(0))
	assert.Equal(t, 5, opts.BufferSize)
	assert.Equal(t, int32(100), opts.PageSize, "non-positive page size falls back to the default")
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pebble

import (
	"encoding/binary"
	"fmt"
)

// Key layout:
//
//	k\x00<keyspace>                         keyspace record (replication policy)
//	s\x00<keyspace>\x00<table>              table schema record
//	r\x00<keyspace>\x00<table>\x00<pk>      row
const sep = 0x00

func keyspaceKey(keyspace string) []byte {
	return append([]byte{'k', sep}, keyspace...)
}

func schemaKey(keyspace, table string) []byte {
	k := append([]byte{'s', sep}, keyspace...)
	k = append(k, sep)
	return append(k, table...)
}

func rowPrefix(keyspace, table string) []byte {
	k := append([]byte{'r', sep}, keyspace...)
	k = append(k, sep)
	k = append(k, table...)
	return append(k, sep)
}

// prefixEnd returns the exclusive upper bound of a prefix ending in sep.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end[len(end)-1] = sep + 1
	return end
}

// rowKey appends the order-preserving encoding of pk to the table prefix.
func rowKey(prefix []byte, pk any) ([]byte, error) {
	k := make([]byte, len(prefix), len(prefix)+16)
	copy(k, prefix)
	switch v := pk.(type) {
	case string:
		return append(k, v...), nil
	case int64:
		// flip the sign bit so negative keys sort first
		return binary.BigEndian.AppendUint64(k, uint64(v)^(1<<63)), nil
	default:
		return nil, fmt.Errorf("unsupported primary key type %T", pk)
	}
}

// successor returns the smallest key strictly greater than k.
func successor(k []byte) []byte {
	next := make([]byte, len(k)+1)
	copy(next, k)
	return next
}

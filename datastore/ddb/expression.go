/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	autherrors "github.com/suparena/authstore/errors"
	"github.com/suparena/authstore/storagemodels"
)

// keyValue marshals a primary key according to its column kind.
func keyValue(schema storagemodels.EntitySchema, key any) (types.AttributeValue, error) {
	switch schema.PrimaryKey.Kind {
	case storagemodels.KindText:
		if _, ok := key.(string); !ok {
			return nil, autherrors.NewValidationError(schema.PrimaryKey.Name, fmt.Sprintf("expected string key, got %T", key))
		}
	case storagemodels.KindInt:
		if _, ok := key.(int64); !ok {
			return nil, autherrors.NewValidationError(schema.PrimaryKey.Name, fmt.Sprintf("expected int64 key, got %T", key))
		}
	}
	av, err := attributevalue.Marshal(key)
	if err != nil {
		return nil, autherrors.NewValidationError(schema.PrimaryKey.Name, err.Error())
	}
	return av, nil
}

func keyAttributes(schema storagemodels.EntitySchema, key any) (map[string]types.AttributeValue, error) {
	av, err := keyValue(schema, key)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{schema.PrimaryKey.Name: av}, nil
}

// keyAttributeType is the DynamoDB scalar type of the hash key.
func keyAttributeType(kind storagemodels.ColumnKind) types.ScalarAttributeType {
	if kind == storagemodels.KindInt {
		return types.ScalarAttributeTypeN
	}
	return types.ScalarAttributeTypeS
}

// encodeItem builds a full item from a row. Nil columns are left out.
func encodeItem(schema storagemodels.EntitySchema, row storagemodels.Row) (map[string]types.AttributeValue, error) {
	item, err := keyAttributes(schema, row.Key)
	if err != nil {
		return nil, err
	}
	for name, v := range row.Columns {
		if v == nil {
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, autherrors.NewValidationError(name, err.Error())
		}
		item[name] = av
	}
	return item, nil
}

// decodeItem converts an item back into a row, typing each attribute by its
// declared column. Undeclared attributes are ignored.
func decodeItem(schema storagemodels.EntitySchema, item map[string]types.AttributeValue) (storagemodels.Row, error) {
	pk, ok := item[schema.PrimaryKey.Name]
	if !ok {
		return storagemodels.Row{}, fmt.Errorf("item has no %s attribute", schema.PrimaryKey.Name)
	}
	key, err := decodeAttribute(schema.PrimaryKey, pk)
	if err != nil {
		return storagemodels.Row{}, err
	}

	row := storagemodels.Row{Key: key, Columns: make(map[string]any, len(schema.Columns))}
	for _, col := range schema.Columns {
		av, ok := item[col.Name]
		if !ok {
			continue
		}
		v, err := decodeAttribute(col, av)
		if err != nil {
			return storagemodels.Row{}, err
		}
		if v != nil {
			row.Columns[col.Name] = v
		}
	}
	return row, nil
}

func decodeAttribute(col storagemodels.Column, av types.AttributeValue) (any, error) {
	if _, isNull := av.(*types.AttributeValueMemberNULL); isNull {
		return nil, nil
	}

	var err error
	switch col.Kind {
	case storagemodels.KindText:
		var s string
		if err = attributevalue.Unmarshal(av, &s); err == nil {
			return s, nil
		}
	case storagemodels.KindInt:
		var n int64
		if err = attributevalue.Unmarshal(av, &n); err == nil {
			return n, nil
		}
	case storagemodels.KindBool:
		var b bool
		if err = attributevalue.Unmarshal(av, &b); err == nil {
			return b, nil
		}
	default:
		err = fmt.Errorf("unknown column kind %d", col.Kind)
	}
	return nil, fmt.Errorf("column %s: %w", col.Name, err)
}

// buildUpdateExpression transforms a map of field->value into:
//   - an "update expression" (e.g., "SET #f0 = :v0 REMOVE #f1")
//   - a corresponding map of expression attribute names
//   - a corresponding map of expression attribute values
//
// Fields are numbered in sorted order; nil values are removed.
func buildUpdateExpression(updates map[string]any) (string,
	map[string]string,
	map[string]types.AttributeValue,
	error) {

	if len(updates) == 0 {
		return "", nil, nil, errors.New("no updates provided")
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var setClauses, removeClauses []string
	exprAttrNames := make(map[string]string, len(fields))
	exprAttrValues := make(map[string]types.AttributeValue, len(fields))

	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		exprAttrNames[placeholderName] = field

		val := updates[field]
		if val == nil {
			removeClauses = append(removeClauses, placeholderName)
			continue
		}

		placeholderValue := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(val)
		if err != nil {
			return "", nil, nil, fmt.Errorf("unhandled update value type for field '%s': %w", field, err)
		}
		exprAttrValues[placeholderValue] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
	}

	var parts []string
	if len(setClauses) > 0 {
		parts = append(parts, "SET "+strings.Join(setClauses, ", "))
	}
	if len(removeClauses) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removeClauses, ", "))
	}
	return strings.Join(parts, " "), exprAttrNames, exprAttrValues, nil
}

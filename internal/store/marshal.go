package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/ir"
)

// sqliteType maps a catalog column type to a SQLite column affinity.
// Timestamps are TEXT in ir.DateTimeLayout, so lexical order is time order.
// Arrays are canonical JSON TEXT.
func sqliteType(c catalog.Column) string {
	switch {
	case c.IsInteger():
		return "INTEGER"
	case c.Type == "Float64":
		return "REAL"
	default:
		return "TEXT"
	}
}

// encodeValue converts an IR value to a SQL parameter for column c.
func encodeValue(c catalog.Column, v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil, nil
	case ir.IRString:
		if c.IsDateTime() {
			dt, err := ir.ParseDateTime(string(val))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			return dt.String(), nil
		}
		return string(val), nil
	case ir.IRDateTime:
		return val.String(), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRArray, ir.IRObject:
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("column %s: unsupported value type %T", c.Name, v)
	}
}

// decodeValue converts a scanned SQLite value back to IR. When the output
// column is a declared storage column its type drives the conversion:
// DateTime text becomes IRDateTime and array JSON becomes IRArray.
func decodeValue(c *catalog.Column, raw any) (ir.IRValue, error) {
	if raw == nil {
		return ir.IRNull{}, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	if c != nil {
		if s, ok := raw.(string); ok {
			switch {
			case c.IsDateTime():
				if dt, err := ir.ParseDateTime(s); err == nil {
					return dt, nil
				}
			case c.IsArray():
				var arr ir.IRArray
				if err := json.Unmarshal([]byte(s), &arr); err != nil {
					return nil, fmt.Errorf("column %s: decode array: %w", c.Name, err)
				}
				return arr, nil
			}
		}
	}

	return ir.FromNative(raw)
}

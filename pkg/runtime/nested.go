package runtime

import "fmt"

// keyString normalizes a column value for use as a map key. MySQL text
// columns arrive as []byte from the driver.
func keyString(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// nestByKey builds the rows_with_key structure: a nested map whose
// depth equals len(keys), with one row at each leaf. A later row with
// the same full key path replaces the earlier one.
func nestByKey(rows []map[string]interface{}, keys []string) (map[string]interface{}, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("rows_with_key requires at least one key column")
	}

	result := make(map[string]interface{})
	for _, row := range rows {
		node, lastKey, err := descend(result, row, keys)
		if err != nil {
			return nil, err
		}
		node[lastKey] = row
	}
	return result, nil
}

// nestByIndex builds the rows_with_index structure: like nestByKey, but
// each leaf is a slice of the rows sharing that full key path.
func nestByIndex(rows []map[string]interface{}, keys []string) (map[string]interface{}, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("rows_with_index requires at least one key column")
	}

	result := make(map[string]interface{})
	for _, row := range rows {
		node, lastKey, err := descend(result, row, keys)
		if err != nil {
			return nil, err
		}
		leaf, _ := node[lastKey].([]map[string]interface{})
		node[lastKey] = append(leaf, row)
	}
	return result, nil
}

// descend walks the intermediate key levels, creating nested maps as
// needed, and returns the map holding the leaf plus the leaf's key.
func descend(root map[string]interface{}, row map[string]interface{}, keys []string) (map[string]interface{}, string, error) {
	node := root
	for _, key := range keys[:len(keys)-1] {
		value, ok := row[key]
		if !ok {
			return nil, "", fmt.Errorf("key column %q not in result row", key)
		}

		k := keyString(value)
		child, ok := node[k].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[k] = child
		}
		node = child
	}

	last := keys[len(keys)-1]
	value, ok := row[last]
	if !ok {
		return nil, "", fmt.Errorf("key column %q not in result row", last)
	}
	return node, keyString(value), nil
}

package postgres

import (
	"encoding/json"
	"fmt"
)

func marshalStringSlice(v []string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal string slice: %w", err)
	}
	return data, nil
}

func unmarshalStringSlice(data []byte, v *[]string) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal string slice: %w", err)
	}
	return nil
}

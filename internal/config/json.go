package config

import "encoding/json"

func marshalOrEmpty(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}"), err
	}
	return b, nil
}

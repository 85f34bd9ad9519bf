package proto

import (
	"encoding/json"
)

type jsonCodec struct{}

func (jsonCodec) marshal(f map[string]interface{}) ([]byte, error) {
	return json.Marshal(f)
}

func (jsonCodec) unmarshal(payload []byte) (map[string]interface{}, error) {
	var f map[string]interface{}
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, err
	}

	return f, nil
}

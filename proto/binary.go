package proto

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// msgpackCodec is the binary-native serializer: the payload map as is.
type msgpackCodec struct{}

func (msgpackCodec) marshal(f map[string]interface{}) ([]byte, error) {
	return msgpack.Marshal(f)
}

func (msgpackCodec) unmarshal(payload []byte) (map[string]interface{}, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.UseLooseInterfaceDecoding(true)

	var f map[string]interface{}
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}

	for k, v := range f {
		nv, err := textSafe(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", k, err)
		}
		f[k] = nv
	}

	return f, nil
}

// textSafe rewrites a decoded msgpack value so that the json and xml
// serializers can encode it too: map keys become strings and typed maps or
// slices become their generic form. NaN and infinities have no json form
// and are refused.
func textSafe(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case nil, string, bool, []byte, int64, uint64:
		return v, nil

	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("unsupported float %v", v)
		}
		return v, nil

	case float32:
		return textSafe(float64(v))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		m := make(map[string]interface{}, rv.Len())
		for iter := rv.MapRange(); iter.Next(); {
			e, err := textSafe(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(iter.Key().Interface())] = e
		}
		return m, nil

	case reflect.Slice, reflect.Array:
		s := make([]interface{}, rv.Len())
		for i := range s {
			e, err := textSafe(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			s[i] = e
		}
		return s, nil
	}

	return v, nil
}

package proto

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Message is the decoded content of one frame.
type Message interface {
	Command() string

	// fields returns the flat key/value form shared by all serializers.
	// It panics when a required field is missing.
	fields() map[string]interface{}
}

// Register declares the serializer the broker must use for everything it
// sends back on this connection. It is always the first frame.
type Register struct {
	Code Serializer
}

type Subscribe struct {
	Topic string
}

type Publish struct {
	Topic string
	Value interface{}
}

// AskList requests the topics that currently hold a value.
type AskList struct{}

// List answers AskList.
type List struct {
	Topics []string
}

type Cancel struct {
	Topic string
}

func (this *Register) Command() string  { return CmdRegister }
func (this *Subscribe) Command() string { return CmdSubscribe }
func (this *Publish) Command() string   { return CmdPublish }
func (this *AskList) Command() string   { return CmdAskList }
func (this *List) Command() string      { return CmdList }
func (this *Cancel) Command() string    { return CmdCancel }

func mustTopic(cmd, topic string) {
	if topic == "" {
		panic(fmt.Sprintf("proto: %s without topic", cmd))
	}
}

func (this *Register) fields() map[string]interface{} {
	if !this.Code.Valid() {
		panic(fmt.Sprintf("proto: register with invalid code %d", this.Code))
	}

	return map[string]interface{}{keyCommand: CmdRegister, keyCode: int(this.Code)}
}

func (this *Subscribe) fields() map[string]interface{} {
	mustTopic(CmdSubscribe, this.Topic)
	return map[string]interface{}{keyCommand: CmdSubscribe, keyTopic: this.Topic}
}

func (this *Publish) fields() map[string]interface{} {
	mustTopic(CmdPublish, this.Topic)
	return map[string]interface{}{keyCommand: CmdPublish, keyTopic: this.Topic, keyValue: this.Value}
}

func (this *AskList) fields() map[string]interface{} {
	return map[string]interface{}{keyCommand: CmdAskList}
}

func (this *List) fields() map[string]interface{} {
	topics := this.Topics
	if topics == nil {
		topics = []string{}
	}

	return map[string]interface{}{keyCommand: CmdList, keyTopics: topics}
}

func (this *Cancel) fields() map[string]interface{} {
	mustTopic(CmdCancel, this.Topic)
	return map[string]interface{}{keyCommand: CmdCancel, keyTopic: this.Topic}
}

// fromFields builds the typed message out of a decoded payload.
func fromFields(f map[string]interface{}) (Message, error) {
	cmd, ok := f[keyCommand].(string)
	if !ok {
		return nil, errMissingCommand
	}

	switch cmd {
	case CmdRegister:
		code, err := intField(f, keyCode)
		if err != nil {
			return nil, err
		}
		if code < 0 || !Serializer(code).Valid() {
			return nil, fmt.Errorf("invalid code %d", code)
		}
		return &Register{Code: Serializer(code)}, nil

	case CmdSubscribe:
		topic, err := topicField(f)
		if err != nil {
			return nil, err
		}
		return &Subscribe{Topic: topic}, nil

	case CmdPublish:
		topic, err := topicField(f)
		if err != nil {
			return nil, err
		}
		value, present := f[keyValue]
		if !present {
			return nil, fmt.Errorf("%s without %s", cmd, keyValue)
		}
		return &Publish{Topic: topic, Value: value}, nil

	case CmdAskList:
		return &AskList{}, nil

	case CmdList:
		topics, err := stringsField(f, keyTopics)
		if err != nil {
			return nil, err
		}
		return &List{Topics: topics}, nil

	case CmdCancel:
		topic, err := topicField(f)
		if err != nil {
			return nil, err
		}
		return &Cancel{Topic: topic}, nil
	}

	return nil, fmt.Errorf("unknown command %q", cmd)
}

func topicField(f map[string]interface{}) (string, error) {
	switch t := f[keyTopic].(type) {
	case string:
		if t != "" {
			return t, nil
		}
	case []byte:
		if len(t) > 0 {
			return string(t), nil
		}
	}

	return "", fmt.Errorf("%v without %s", f[keyCommand], keyTopic)
}

func intField(f map[string]interface{}, key string) (int64, error) {
	switch v := f[key].(type) {
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
	case string:
		// xml attributes, and the json form older clients send
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
	case nil:
		return 0, fmt.Errorf("%v without %s", f[keyCommand], key)
	}

	return 0, fmt.Errorf("%s: not an integer: %v", key, f[key])
}

func stringsField(f map[string]interface{}, key string) ([]string, error) {
	switch v := f[key].(type) {
	case []string:
		return v, nil

	case []interface{}:
		r := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: not a string: %v", key, item)
			}
			r = append(r, s)
		}
		return r, nil

	case string:
		// xml carries the list as json text inside one attribute
		var r []string
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("%s: %v", key, err)
		}
		if r == nil {
			r = []string{}
		}
		return r, nil

	case nil:
		return nil, fmt.Errorf("%v without %s", f[keyCommand], key)
	}

	return nil, fmt.Errorf("%s: not a list: %v", key, f[key])
}

package proto

import (
	"fmt"
	"math"
	"strings"
)

// Serializer is the 1-byte tag in front of every frame.
type Serializer uint8

const (
	JSON Serializer = iota
	XML
	Binary
)

func (this Serializer) Valid() bool {
	return this <= Binary
}

func (this Serializer) String() string {
	switch this {
	case JSON:
		return "json"
	case XML:
		return "xml"
	case Binary:
		return "binary"
	}

	return fmt.Sprintf("serializer(%d)", uint8(this))
}

// ParseSerializer accepts the String() form or the numeric tag.
func ParseSerializer(name string) (Serializer, error) {
	switch strings.ToLower(name) {
	case "json", "0":
		return JSON, nil
	case "xml", "1":
		return XML, nil
	case "binary", "msgpack", "pickle", "2":
		return Binary, nil
	}

	return 0, fmt.Errorf("unknown serializer: %s", name)
}

const (
	CmdRegister  = "register"
	CmdSubscribe = "subscribe"
	CmdPublish   = "publish"
	CmdAskList   = "ask"
	CmdList      = "list"
	CmdCancel    = "cancel"
)

// payload keys
const (
	keyCommand = "command"
	keyCode    = "code"
	keyTopic   = "topic"
	keyValue   = "value"
	keyTopics  = "topics"
)

const (
	HeaderLen     = 3 // tag + uint16 length
	MaxPayloadLen = math.MaxUint16
)

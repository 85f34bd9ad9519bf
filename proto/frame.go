package proto

import (
	"encoding/binary"
	"io"
)

// Frame on the wire:
//
//	+--------+-----------------+------------------+
//	| tag(1) | length(2, big)  | payload(length)  |
//	+--------+-----------------+------------------+
//
// Zero length marks the end of the stream.

type payloadCodec interface {
	marshal(f map[string]interface{}) ([]byte, error)
	unmarshal(payload []byte) (map[string]interface{}, error)
}

var codecs = [...]payloadCodec{
	JSON:   jsonCodec{},
	XML:    xmlCodec{},
	Binary: msgpackCodec{},
}

func codecOf(s Serializer) payloadCodec {
	if !s.Valid() {
		return nil
	}
	return codecs[s]
}

// Marshal returns the complete frame of m under serializer s.
// It panics if m is nil or misses a required field.
func Marshal(m Message, s Serializer) ([]byte, error) {
	if m == nil {
		panic("proto: marshal nil message")
	}

	c := codecOf(s)
	if c == nil {
		return nil, ErrUnknownSerializer
	}

	payload, err := c.marshal(m.fields())
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadLen {
		return nil, ErrFrameTooLarge
	}

	frame := make([]byte, HeaderLen+len(payload))
	frame[0] = byte(s)
	binary.BigEndian.PutUint16(frame[1:HeaderLen], uint16(len(payload)))
	copy(frame[HeaderLen:], payload)
	return frame, nil
}

// Encode writes one frame of m to w.
func Encode(w io.Writer, m Message, s Serializer) error {
	frame, err := Marshal(m, s)
	if err != nil {
		return err
	}

	_, err = w.Write(frame)
	return err
}

// EncodeEndOfStream writes the zero-length frame that tells the peer we are done.
func EncodeEndOfStream(w io.Writer) error {
	_, err := w.Write([]byte{byte(JSON), 0, 0})
	return err
}

// DecodeOneMessage reads exactly one frame from r.
//
// A zero-length frame returns ErrNoMessage whatever its tag. A payload that
// does not decode returns *BadFormatError. I/O failures are returned as is:
// io.EOF when r ends cleanly before a header, io.ErrUnexpectedEOF when it
// ends mid-frame.
func DecodeOneMessage(r io.Reader) (Message, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint16(hdr[1:])
	if n == 0 {
		return nil, ErrNoMessage
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return Unmarshal(Serializer(hdr[0]), payload)
}

// Unmarshal decodes a payload without its frame header.
func Unmarshal(s Serializer, payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, ErrNoMessage
	}

	c := codecOf(s)
	if c == nil {
		return nil, badFormat(s, payload, ErrUnknownSerializer)
	}

	f, err := c.unmarshal(payload)
	if err != nil {
		return nil, badFormat(s, payload, err)
	}

	m, err := fromFields(f)
	if err != nil {
		return nil, badFormat(s, payload, err)
	}

	return m, nil
}

package proto

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMessage is returned for a zero-length frame: the peer is done.
	ErrNoMessage = errors.New("proto: no message")

	ErrFrameTooLarge     = errors.New("proto: payload exceeds 65535 bytes")
	ErrUnknownSerializer = errors.New("proto: unknown serializer")

	errMissingCommand = errors.New("missing command")
)

// BadFormatError is returned when a payload does not parse under its
// declared serializer, or does not carry a known command with its required
// fields.
type BadFormatError struct {
	Serializer Serializer
	Original   []byte
	Err        error
}

func (this *BadFormatError) Error() string {
	return fmt.Sprintf("proto: bad %s payload (%d bytes): %v",
		this.Serializer, len(this.Original), this.Err)
}

func (this *BadFormatError) Unwrap() error {
	return this.Err
}

func badFormat(s Serializer, payload []byte, err error) *BadFormatError {
	return &BadFormatError{Serializer: s, Original: payload, Err: err}
}

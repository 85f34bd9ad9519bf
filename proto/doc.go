// Package proto implements the pubhub wire protocol shared by broker and clients.
//
// Each message travels as a frame: a serializer tag, a big-endian 16-bit
// payload length and the payload itself. The payload carries a flat object
// whose "command" key discriminates the message kind, encoded as JSON, XML or
// msgpack depending on the tag.
package proto

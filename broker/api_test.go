package broker

import (
	"net"
	"testing"

	"github.com/funkygao/assert"
	"github.com/funkygao/pubhub/proto"
)

func TestListTopicsKeepsPublishesForPull(t *testing.T) {
	s := startServer(t, testConfig())

	sub := dial(t, s, proto.XML)
	assert.Equal(t, nil, sub.Subscribe("/news"))
	barrier(t, sub)

	pub := dial(t, s, proto.Binary)
	assert.Equal(t, nil, pub.Publish("/news/sport", "goal"))
	assert.Equal(t, nil, pub.Publish("/news/tech", "go"))
	barrier(t, pub)

	assert.Equal(t, []string{"/news/sport", "/news/tech"}, barrier(t, sub))
	assert.Equal(t, &proto.Publish{Topic: "/news/sport", Value: "goal"}, pull(t, sub))
	assert.Equal(t, &proto.Publish{Topic: "/news/tech", Value: "go"}, pull(t, sub))
}

func TestAskListArrivesOnPull(t *testing.T) {
	s := startServer(t, testConfig())

	c := dial(t, s, proto.JSON)
	c.Dump = true
	assert.Equal(t, nil, c.Publish("/a", nil))
	assert.Equal(t, nil, c.AskList())
	assert.Equal(t, &proto.List{Topics: []string{"/a"}}, pull(t, c))
}

func TestClientCloseSendsEndOfStream(t *testing.T) {
	client, srv := net.Pipe()
	defer srv.Close()

	registered := make(chan proto.Message, 1)
	go func() {
		m, _ := proto.DecodeOneMessage(srv)
		registered <- m
	}()

	c, err := NewClientConn(client, proto.Binary)
	assert.Equal(t, nil, err)
	assert.Equal(t, &proto.Register{Code: proto.Binary}, <-registered)

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()

	_, err = proto.DecodeOneMessage(srv)
	assert.Equal(t, proto.ErrNoMessage, err)
	assert.Equal(t, nil, <-closed)

	// further sends fail instead of blocking
	assert.Equal(t, ErrClientClosed, c.Publish("/a", 1))
}

func TestNewClientConnRejectsUnknownSerializer(t *testing.T) {
	client, srv := net.Pipe()
	defer srv.Close()

	c, err := NewClientConn(client, proto.Serializer(5))
	assert.Equal(t, (*ClientConn)(nil), c)
	assert.Equal(t, proto.ErrUnknownSerializer, err)
}

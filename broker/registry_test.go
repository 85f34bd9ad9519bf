package broker

import (
	"testing"

	"github.com/funkygao/assert"
	"github.com/funkygao/pubhub/proto"
)

func conns(ds []Delivery) []ConnId {
	r := make([]ConnId, 0, len(ds))
	for _, d := range ds {
		r = append(r, d.Conn)
	}
	return r
}

func TestPublishWithoutSubscribers(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, len(r.Publish("/weather/temp", 21)))

	v, present := r.Value("/weather/temp")
	assert.Equal(t, true, present)
	assert.Equal(t, 21, v)
	assert.Equal(t, []string{"/weather/temp"}, r.ListTopics())
}

func TestPublishOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Publish("/a", 1)
	r.Publish("/a", 2)
	v, _ := r.Value("/a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, r.Topics())
}

func TestHierarchicalFanout(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, (*Delivery)(nil), r.Subscribe("/weather", 1, proto.JSON))
	r.Subscribe("/weather/temp", 2, proto.XML)
	r.Subscribe("/weatherman", 3, proto.JSON)
	r.Subscribe("/", 4, proto.Binary)
	r.Subscribe("/news", 5, proto.JSON)

	ds := r.Publish("/weather/temp", 21)
	assert.Equal(t, []ConnId{4, 1, 2}, conns(ds))
	assert.Equal(t, proto.Binary, ds[0].Format)
	assert.Equal(t, proto.XML, ds[2].Format)
	for _, d := range ds {
		assert.Equal(t, &proto.Publish{Topic: "/weather/temp", Value: 21}, d.Msg)
	}

	assert.Equal(t, []ConnId{4, 3}, conns(r.Publish("/weatherman", "x")))
	assert.Equal(t, 3, r.Subscribers("/weather/temp/max"))
	assert.Equal(t, 0, r.Subscribers("weather"))
}

func TestOneDeliveryPerConnection(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("/weather/temp", 1, proto.JSON)
	r.Subscribe("/weather", 1, proto.JSON)
	r.Subscribe("/weather/", 1, proto.JSON)
	r.Subscribe("/weather/temp", 2, proto.JSON)

	assert.Equal(t, []ConnId{1, 2}, conns(r.Publish("/weather/temp", 21)))
}

func TestSubscribeOrderIsDeliveryOrder(t *testing.T) {
	r := NewRegistry()
	for _, c := range []ConnId{7, 3, 9, 1} {
		r.Subscribe("/a", c, proto.JSON)
	}
	assert.Equal(t, []ConnId{7, 3, 9, 1}, conns(r.Publish("/a", nil)))

	r.Unsubscribe("/a", 3)
	assert.Equal(t, []ConnId{7, 9, 1}, conns(r.Publish("/a", nil)))
}

func TestReplayOnSubscribe(t *testing.T) {
	r := NewRegistry()
	r.Publish("/weather/temp", 21)

	d := r.Subscribe("/weather/temp", 1, proto.XML)
	assert.Equal(t, &Delivery{Conn: 1, Format: proto.XML,
		Msg: &proto.Publish{Topic: "/weather/temp", Value: 21}}, d)

	// descendants are not replayed
	assert.Equal(t, (*Delivery)(nil), r.Subscribe("/weather", 2, proto.JSON))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Publish("/a", "v")

	assert.NotEqual(t, (*Delivery)(nil), r.Subscribe("/a", 1, proto.JSON))
	assert.Equal(t, (*Delivery)(nil), r.Subscribe("/a", 1, proto.JSON))
	assert.Equal(t, 1, len(r.Publish("/a", "w")))
}

func TestUnsubscribe(t *testing.T) {
	r := NewRegistry()
	r.Unsubscribe("/none", 1) // no-op

	r.Subscribe("/a", 1, proto.JSON)
	r.Subscribe("/a", 2, proto.JSON)
	r.Unsubscribe("/a", 1)
	r.Unsubscribe("/a", 3)
	assert.Equal(t, []ConnId{2}, conns(r.Publish("/a", 1)))

	r.Unsubscribe("/a", 2)
	assert.Equal(t, 0, len(r.subs))

	// cancel on an ancestor leaves the exact subscription alone
	r.Subscribe("/a/b", 1, proto.JSON)
	r.Unsubscribe("/a", 1)
	assert.Equal(t, []ConnId{1}, conns(r.Publish("/a/b", 1)))
}

func TestDropConnection(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("/a", 1, proto.JSON)
	r.Subscribe("/b", 1, proto.JSON)
	r.Subscribe("/b", 2, proto.JSON)
	r.Publish("/c", "kept")

	r.DropConnection(1)
	assert.Equal(t, 0, len(r.Publish("/a", 1)))
	assert.Equal(t, []ConnId{2}, conns(r.Publish("/b", 1)))
	_, present := r.subs["/a"]
	assert.Equal(t, false, present)

	// values outlive their publishers
	assert.Equal(t, []string{"/a", "/b", "/c"}, r.ListTopics())

	r.DropConnection(99)
}

func TestListTopicsOnlyValued(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("/subscribed/only", 1, proto.JSON)
	assert.Equal(t, []string{}, r.ListTopics())

	r.Publish("/b", 1)
	r.Publish("/a", 1)
	assert.Equal(t, []string{"/a", "/b"}, r.ListTopics())
}

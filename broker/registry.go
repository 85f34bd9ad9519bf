package broker

import (
	"sort"

	"github.com/funkygao/pubhub/proto"
)

// ConnId identifies a connection for the lifetime of the broker process.
type ConnId uint64

// A Delivery is a publish that must be written to one connection, in the
// serializer that connection registered with.
type Delivery struct {
	Conn   ConnId
	Format proto.Serializer
	Msg    *proto.Publish
}

type subscriber struct {
	conn   ConnId
	format proto.Serializer
}

// Registry holds the last value of every topic and who subscribes to what.
//
// It never does I/O: every mutation returns the deliveries the caller has
// to write. Registry is not goroutine safe, the server loop owns it.
type Registry struct {
	values map[string]interface{}
	subs   map[string][]subscriber // exact topic -> subscribers in subscribe order
}

func NewRegistry() *Registry {
	return &Registry{
		values: make(map[string]interface{}),
		subs:   make(map[string][]subscriber),
	}
}

// Publish stores value as the current value of topic and fans it out to the
// subscribers of topic and of all its ancestors. A connection reached through
// several ancestors gets one delivery, at its shallowest subscription.
func (this *Registry) Publish(topic string, value interface{}) []Delivery {
	this.values[topic] = value

	var (
		msg        = &proto.Publish{Topic: topic, Value: value}
		deliveries []Delivery
		seen       map[ConnId]struct{}
	)
	for _, t := range ancestors(topic) {
		for _, s := range this.subs[t] {
			if seen == nil {
				seen = make(map[ConnId]struct{})
			}
			if _, dup := seen[s.conn]; dup {
				continue
			}

			seen[s.conn] = struct{}{}
			deliveries = append(deliveries, Delivery{Conn: s.conn, Format: s.format, Msg: msg})
		}
	}

	return deliveries
}

// Subscribe adds conn to the subscribers of topic. Subscribing twice is a
// no-op. A new subscription gets the current value of topic, if any, as a
// replay delivery. Values of descendant topics are not replayed.
func (this *Registry) Subscribe(topic string, conn ConnId, format proto.Serializer) *Delivery {
	for _, s := range this.subs[topic] {
		if s.conn == conn {
			return nil
		}
	}

	this.subs[topic] = append(this.subs[topic], subscriber{conn: conn, format: format})

	value, present := this.values[topic]
	if !present {
		return nil
	}

	return &Delivery{Conn: conn, Format: format, Msg: &proto.Publish{Topic: topic, Value: value}}
}

func (this *Registry) Unsubscribe(topic string, conn ConnId) {
	subs := this.subs[topic]
	for i, s := range subs {
		if s.conn == conn {
			this.removeAt(topic, i)
			return
		}
	}
}

// DropConnection removes every subscription of conn.
func (this *Registry) DropConnection(conn ConnId) {
	for topic, subs := range this.subs {
		for i, s := range subs {
			if s.conn == conn {
				this.removeAt(topic, i)
				break
			}
		}
	}
}

// removeAt keeps the subscribe order of the remaining entries.
func (this *Registry) removeAt(topic string, i int) {
	subs := this.subs[topic]
	if len(subs) == 1 {
		delete(this.subs, topic)
		return
	}

	this.subs[topic] = append(subs[:i:i], subs[i+1:]...)
}

// ListTopics returns the topics that have a value, sorted.
func (this *Registry) ListTopics() []string {
	topics := make([]string, 0, len(this.values))
	for t := range this.values {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func (this *Registry) Value(topic string) (value interface{}, present bool) {
	value, present = this.values[topic]
	return
}

// Subscribers returns how many connections a publish on topic would reach.
func (this *Registry) Subscribers(topic string) int {
	seen := make(map[ConnId]struct{})
	for _, t := range ancestors(topic) {
		for _, s := range this.subs[t] {
			seen[s.conn] = struct{}{}
		}
	}
	return len(seen)
}

// Topics returns how many topics have a value.
func (this *Registry) Topics() int {
	return len(this.values)
}

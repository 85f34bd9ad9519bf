package broker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/funkygao/assert"
	"github.com/funkygao/pubhub/config"
	"github.com/funkygao/pubhub/proto"
	"github.com/vmihailenco/msgpack/v5"
)

const testRedisServer = "localhost:6379"

// get reads back a mirrored value into val.
func (this *valueMirror) get(topic string, val interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), this.timeout)
	defer cancel()

	b, err := this.client.Get(ctx, this.key(topic)).Bytes()
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(b, val)
}

func redisConfig(t *testing.T) config.RedisConfig {
	conn, err := net.DialTimeout("tcp", testRedisServer, 200*time.Millisecond)
	if err != nil {
		t.Skipf("no redis at %s", testRedisServer)
	}
	conn.Close()

	cf := config.Default().Redis
	cf.Server = testRedisServer
	cf.KeyPrefix = "pubhub.test." + time.Now().Format("150405.000000") + "."
	return cf
}

func TestMirrorStoreAndGet(t *testing.T) {
	m := newValueMirror(redisConfig(t))
	defer m.client.Close()

	assert.Equal(t, nil, m.store("/weather/temp", 21.5))
	var v float64
	assert.Equal(t, nil, m.get("/weather/temp", &v))
	assert.Equal(t, 21.5, v)
}

func TestServerMirrorsPublishedValues(t *testing.T) {
	cf := testConfig()
	cf.Redis = redisConfig(t)
	s := startServer(t, cf)

	c := dial(t, s, proto.JSON)
	assert.Equal(t, nil, c.Publish("/weather", "sunny"))
	barrier(t, c)

	var v string
	eventually(t, func() bool {
		return s.mirror.get("/weather", &v) == nil
	})
	assert.Equal(t, "sunny", v)
}

func TestMirrorQueueFullDropsJob(t *testing.T) {
	cf := config.Default().Redis
	cf.Server = testRedisServer
	cf.QueueLen = 1
	m := newValueMirror(cf)
	defer m.client.Close()

	// not started, nothing drains the queue
	m.submit("/a", 1)
	m.submit("/b", 2)
	assert.Equal(t, 1, len(m.jobs))
	assert.Equal(t, "/a", (<-m.jobs).topic)
}

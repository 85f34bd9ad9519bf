package broker

import (
	"context"
	"time"

	log "github.com/funkygao/log4go"
	"github.com/funkygao/pubhub/config"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type mirrorJob struct {
	topic string
	value interface{}
}

// valueMirror copies every topic value to redis so that tools outside the
// broker can read current values. It is write only: the broker never loads
// anything back from redis.
type valueMirror struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration

	jobs chan mirrorJob
	done chan struct{}
}

func newValueMirror(cf config.RedisConfig) *valueMirror {
	this := &valueMirror{
		keyPrefix: cf.KeyPrefix,
		timeout:   cf.IOTimeout,
		jobs:      make(chan mirrorJob, cf.QueueLen),
		done:      make(chan struct{}),
	}
	this.client = redis.NewClient(&redis.Options{
		Addr:            cf.Server,
		MaxIdleConns:    cf.MaxIdle,
		ConnMaxIdleTime: cf.IdleTimeout,
		ReadTimeout:     cf.IOTimeout,
		WriteTimeout:    cf.IOTimeout,
	})

	return this
}

func (this *valueMirror) key(topic string) string {
	return this.keyPrefix + topic
}

func (this *valueMirror) start() {
	go this.run()
	log.Info("mirroring topic values to redis[%s]", this.client.Options().Addr)
}

// submit never blocks the caller: a full queue loses the job.
func (this *valueMirror) submit(topic string, value interface{}) {
	select {
	case this.jobs <- mirrorJob{topic: topic, value: value}:
	default:
		log.Error("mirror: queue full, %s lost", topic)
	}
}

func (this *valueMirror) run() {
	defer close(this.done)

	for job := range this.jobs {
		if err := this.store(job.topic, job.value); err != nil {
			log.Error("mirror %s: %v", job.topic, err)
		}
	}
}

func (this *valueMirror) store(topic string, value interface{}) error {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), this.timeout)
	defer cancel()
	return this.client.Set(ctx, this.key(topic), b, 0).Err()
}

// stop writes what is queued and closes the redis client.
func (this *valueMirror) stop() {
	close(this.jobs)
	<-this.done
	this.client.Close()
}

package broker

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/funkygao/golib/gofmt"
	"github.com/funkygao/golib/server"
	log "github.com/funkygao/log4go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type stats struct {
	interval time.Duration

	topics     int64
	recv       int64
	sent       int64
	sessions   int64 // cumulated
	clients    int64
	badFormats int64
	violations int64
	dropped    int64 // outbound frames lost to a full queue
	rejected   int64 // conns beyond max_connections

	descs map[string]*prometheus.Desc
}

func newStats(interval time.Duration) *stats {
	this := &stats{interval: interval}
	this.descs = map[string]*prometheus.Desc{
		"topics":      prometheus.NewDesc("pubhub_topics", "Topics with a value.", nil, nil),
		"recv":        prometheus.NewDesc("pubhub_messages_received_total", "Frames decoded from clients.", nil, nil),
		"sent":        prometheus.NewDesc("pubhub_messages_sent_total", "Frames written to clients.", nil, nil),
		"sessions":    prometheus.NewDesc("pubhub_sessions_total", "Accepted client conns.", nil, nil),
		"clients":     prometheus.NewDesc("pubhub_clients", "Connected clients.", nil, nil),
		"bad_formats": prometheus.NewDesc("pubhub_bad_formats_total", "Frames whose payload failed to decode.", nil, nil),
		"violations":  prometheus.NewDesc("pubhub_protocol_violations_total", "Conns closed for a protocol violation.", nil, nil),
		"dropped":     prometheus.NewDesc("pubhub_dropped_frames_total", "Outbound frames lost to a full queue.", nil, nil),
		"rejected":    prometheus.NewDesc("pubhub_rejected_conns_total", "Conns refused by max_connections.", nil, nil),
	}
	return this
}

func (this *stats) messageRecv() { atomic.AddInt64(&this.recv, 1) }
func (this *stats) messageSend() { atomic.AddInt64(&this.sent, 1) }
func (this *stats) clientConnect() {
	atomic.AddInt64(&this.clients, 1)
	atomic.AddInt64(&this.sessions, 1)
}
func (this *stats) clientDisconnect() { atomic.AddInt64(&this.clients, -1) }
func (this *stats) badFormat()        { atomic.AddInt64(&this.badFormats, 1) }
func (this *stats) violation()        { atomic.AddInt64(&this.violations, 1) }
func (this *stats) frameDropped()     { atomic.AddInt64(&this.dropped, 1) }
func (this *stats) connRejected()     { atomic.AddInt64(&this.rejected, 1) }
func (this *stats) setTopics(n int)   { atomic.StoreInt64(&this.topics, int64(n)) }

func (this *stats) snapshot() map[string]int64 {
	return map[string]int64{
		"topics":      atomic.LoadInt64(&this.topics),
		"recv":        atomic.LoadInt64(&this.recv),
		"sent":        atomic.LoadInt64(&this.sent),
		"sessions":    atomic.LoadInt64(&this.sessions),
		"clients":     atomic.LoadInt64(&this.clients),
		"bad_formats": atomic.LoadInt64(&this.badFormats),
		"violations":  atomic.LoadInt64(&this.violations),
		"dropped":     atomic.LoadInt64(&this.dropped),
		"rejected":    atomic.LoadInt64(&this.rejected),
	}
}

func (this *stats) String() string {
	return fmt.Sprintf("{topic:%d, recv:%d, sent:%d, sess:%d, client:%d, bad:%d, violation:%d, drop:%d, reject:%d}",
		atomic.LoadInt64(&this.topics),
		atomic.LoadInt64(&this.recv),
		atomic.LoadInt64(&this.sent),
		atomic.LoadInt64(&this.sessions),
		atomic.LoadInt64(&this.clients),
		atomic.LoadInt64(&this.badFormats),
		atomic.LoadInt64(&this.violations),
		atomic.LoadInt64(&this.dropped),
		atomic.LoadInt64(&this.rejected))
}

// current simultaneous client conns
func (this *stats) Clients() int {
	return int(atomic.LoadInt64(&this.clients))
}

func (this *stats) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range this.descs {
		ch <- d
	}
}

func (this *stats) Collect(ch chan<- prometheus.Metric) {
	for name, v := range this.snapshot() {
		vt := prometheus.CounterValue
		if name == "topics" || name == "clients" {
			vt = prometheus.GaugeValue
		}
		ch <- prometheus.MustNewConstMetric(this.descs[name], vt, float64(v))
	}
}

// serveHttp exposes the counters as json on /stats and in the prometheus
// text format on /metrics, with pprof on profAddr if given.
func (this *stats) serveHttp(addr, profAddr string) error {
	if err := server.LaunchHttpServer(addr, profAddr); err != nil {
		return err
	}

	server.RegisterHttpApi("/stats", func(w http.ResponseWriter, req *http.Request,
		params map[string]interface{}) (interface{}, error) {
		return this.snapshot(), nil
	}).Methods("GET")

	reg := prometheus.NewRegistry()
	reg.MustRegister(this)
	// promhttp writes the response itself
	server.RegisterHttpApi("/metrics", nil).
		Handler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")

	log.Info("stats serving at http://%s/stats and /metrics", addr)
	return nil
}

func (this *stats) stopHttp() {
	server.StopHttpServer()
}

func (this *stats) start(stop <-chan struct{}) {
	ticker := time.NewTicker(this.interval)
	defer ticker.Stop()

	var (
		ms           = new(runtime.MemStats)
		rusage       = &syscall.Rusage{}
		lastUserTime int64
		lastSysTime  int64
		userTime     int64
		sysTime      int64
		userCpuUtil  float64
		sysCpuUtil   float64
	)
	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
		}

		runtime.ReadMemStats(ms)

		syscall.Getrusage(syscall.RUSAGE_SELF, rusage)
		userTime = rusage.Utime.Sec*1000000000 + int64(rusage.Utime.Usec)*1000
		sysTime = rusage.Stime.Sec*1000000000 + int64(rusage.Stime.Usec)*1000
		userCpuUtil = float64(userTime-lastUserTime) * 100 / float64(this.interval)
		sysCpuUtil = float64(sysTime-lastSysTime) * 100 / float64(this.interval)

		lastUserTime = userTime
		lastSysTime = sysTime

		log.Info("%s, ver:%s, goroutine:%d, mem:%s, objects:%s, cpu:{%3.2f%%us, %3.2f%%sy}",
			this,
			server.BuildId,
			runtime.NumGoroutine(),
			gofmt.ByteSize(ms.Alloc),
			gofmt.Comma(int64(ms.HeapObjects)),
			userCpuUtil,
			sysCpuUtil)
	}
}

/*
Simulates a number of pairs of clients where one is sending as fast as possible to the other.
Realistically, this ends up testing the ability of the broker to decode and queue messages:
a slow subscriber piles up frames in its outbound queue until the overflow strategy kicks in.
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/funkygao/golib/gofmt"
	"github.com/funkygao/pubhub/broker"
	"github.com/funkygao/pubhub/proto"
)

var conns = flag.Int("conns", 100, "how many connections")
var messages = flag.Int("messages", 100, "how many messages")
var host = flag.String("host", "localhost:5000", "hostname of broker")
var format = flag.String("format", "binary", "serializer: json|xml|binary")
var dump = flag.Bool("dump", false, "dump messages?")
var pace = flag.Int("pace", 0, "send a message on average once every pace milliseconds")

var (
	serializer proto.Serializer
	cwg        sync.WaitGroup
)

// A channel to communicate subscribers that didn't get what they expected
var bad = make(chan int, 1000)

func main() {
	log.SetFlags(log.Lmicroseconds | log.Lshortfile)
	flag.Parse()

	var err error
	if serializer, err = proto.ParseSerializer(*format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	timeStart := time.Now()

	// a system to check how long connection establishment takes
	publishers := *conns / 2
	cwg.Add(publishers * 2)
	go func() {
		cwg.Wait()
		log.Print("all connections made")
	}()

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(2)
		go func(i int) {
			sub(i, &wg)
			pub(i)

			wg.Done()
		}(i)
	}
	log.Print("all started")
	wg.Wait()
	log.Print("all finished")

	timeEnd := time.Now()

	rc := 0
loop:
	for {
		select {
		case i := <-bad:
			log.Print("subscriber missed messages: ", i)
			rc = 1
		default:
			// nothing to read on bad, done.
			break loop
		}
	}

	elapsed := timeEnd.Sub(timeStart)
	totmsg := int64(*messages * publishers)
	msgpersec := int64(float64(totmsg) / elapsed.Seconds())

	log.Print("elapsed time: ", elapsed)
	log.Print("messages    : ", gofmt.Comma(totmsg))
	log.Print("messages/sec: ", gofmt.Comma(msgpersec))

	os.Exit(rc)
}

func topicOf(i int) string {
	return fmt.Sprintf("loadtest/%d", i)
}

func connect() *broker.ClientConn {
	cc, err := broker.Dial(*host, serializer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		return nil
	}
	cc.Dump = *dump

	cwg.Done()
	return cc
}

func pub(i int) {
	topic := topicOf(i)

	var cc *broker.ClientConn
	if cc = connect(); cc == nil {
		log.Println(i, " failed connection")
		return
	}
	defer cc.Close()

	value := map[string]interface{}{
		"uid":      53,
		"march_id": 330,
		"city_id":  53,
		"type":     "encamp",
		"state":    "marching",
	}
	for j := 0; j < *messages; j++ {
		value["seq"] = j
		if err := cc.Publish(topic, value); err != nil {
			log.Println(i, err)
			return
		}

		if *pace > 0 {
			half := *pace / 2
			sltime := rand.Intn(half+1) - half/2 + *pace
			time.Sleep(time.Duration(sltime) * time.Millisecond)
		}
	}
}

func sub(i int, wg *sync.WaitGroup) {
	var cc *broker.ClientConn
	if cc = connect(); cc == nil {
		bad <- i
		wg.Done()
		return
	}

	if err := cc.Subscribe(topicOf(i)); err != nil {
		log.Println(i, err)
	}
	// make sure the subscribe landed before the publisher starts
	if _, err := cc.ListTopics(); err != nil {
		log.Println(i, err)
	}

	go func() {
		defer wg.Done()

		count := 0
		for count < *messages {
			if _, err := cc.Pull(); err != nil {
				bad <- i
				return
			}
			count++
		}

		cc.Close()
	}()
}

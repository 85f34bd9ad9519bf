package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/funkygao/golib/color"
	"github.com/funkygao/pubhub/broker"
	"github.com/funkygao/pubhub/proto"
)

var host = flag.String("host", "localhost:5000", "hostname of broker")
var format = flag.String("format", "json", "serializer: json|xml|binary")
var dump = flag.Bool("dump", false, "dump messages?")

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: sub topic [topic topic...]")
		return
	}

	s, err := proto.ParseSerializer(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cc, err := broker.Dial(*host, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	cc.Dump = *dump

	for _, topic := range flag.Args() {
		if err = cc.Subscribe(topic); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("Connected to %s as %s\n", *host, s)

	for {
		m, err := cc.Pull()
		if err != nil {
			log.Println(err)
			return
		}

		if m, ok := m.(*proto.Publish); ok {
			fmt.Printf("%s\t%s\n", color.Yellow("%s", m.Topic), valueText(m.Value))
		}
	}
}

func valueText(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

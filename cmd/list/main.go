package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/funkygao/golib/color"
	"github.com/funkygao/pubhub/broker"
	"github.com/funkygao/pubhub/proto"
)

var host = flag.String("host", "localhost:5000", "hostname of broker")
var format = flag.String("format", "json", "serializer: json|xml|binary")

func main() {
	flag.Parse()

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
	defer cc.Close()

	topics, err := cc.ListTopics()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, t := range topics {
		fmt.Println(t)
	}
	fmt.Println(color.Green("%d topics", len(topics)))
}

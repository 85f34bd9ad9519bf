package broker

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/funkygao/pubhub/proto"
)

func BenchmarkAncestors(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ancestors("/weather/europe/paris/temp")
	}
}

func BenchmarkRegistryPublish(b *testing.B) {
	r := NewRegistry()
	for i := 0; i < 100; i++ {
		r.Subscribe(fmt.Sprintf("/weather/%d", i), ConnId(i), proto.JSON)
		r.Subscribe("/weather", ConnId(i+100), proto.JSON)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Publish("/weather/42", i)
	}
}

func BenchmarkMarshalPublish(b *testing.B) {
	m := &proto.Publish{Topic: "/weather/temp", Value: 21.5}
	for _, s := range []proto.Serializer{proto.JSON, proto.XML, proto.Binary} {
		b.Run(s.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				proto.Marshal(m, s)
			}
		})
	}
}

func BenchmarkDecodeOneMessage(b *testing.B) {
	frame, _ := proto.Marshal(&proto.Publish{Topic: "/weather/temp", Value: 21.5}, proto.Binary)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		proto.DecodeOneMessage(bytes.NewReader(frame))
	}
}

package broker

import (
	"strings"
)

// isAncestor reports whether a subscription on parent receives publishes on
// topic. The prefix must stop at a path segment boundary, so /weather is an
// ancestor of /weather/temp but not of /weatherman.
func isAncestor(parent, topic string) bool {
	if !strings.HasPrefix(topic, parent) {
		return false
	}

	if len(topic) == len(parent) || strings.HasSuffix(parent, SLASH) {
		return true
	}

	return topic[len(parent)] == '/'
}

// ancestors returns every topic that is an ancestor of topic, shallowest
// first and topic itself last.
//
//	ancestors("/weather/temp") = ["", "/", "/weather", "/weather/", "/weather/temp"]
func ancestors(topic string) []string {
	r := make([]string, 0, 2*strings.Count(topic, SLASH)+1)
	add := func(t string) {
		// candidates come in length order, so duplicates are adjacent
		if len(r) > 0 && r[len(r)-1] == t {
			return
		}
		r = append(r, t)
	}

	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			add(topic[:i])
			add(topic[:i+1])
		}
	}
	add(topic)

	return r
}

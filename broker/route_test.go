package broker

import (
	"testing"

	"github.com/funkygao/assert"
)

func TestIsAncestor(t *testing.T) {
	assert.Equal(t, true, isAncestor("/weather", "/weather"))
	assert.Equal(t, true, isAncestor("/weather", "/weather/temp"))
	assert.Equal(t, true, isAncestor("/weather/", "/weather/temp"))
	assert.Equal(t, true, isAncestor("/", "/weather/temp"))
	assert.Equal(t, true, isAncestor("", "/weather"))
	assert.Equal(t, true, isAncestor("", ""))
	assert.Equal(t, true, isAncestor("/wea", "/wea/ther"))
	assert.Equal(t, false, isAncestor("/weather", "/weatherman"))
	assert.Equal(t, false, isAncestor("/weather/temp", "/weather"))
	assert.Equal(t, false, isAncestor("/weather", "/news/weather"))
	assert.Equal(t, false, isAncestor("", "weather"))
	assert.Equal(t, true, isAncestor("weather", "weather/temp"))
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"", "/", "/weather", "/weather/", "/weather/temp"},
		ancestors("/weather/temp"))
	assert.Equal(t, []string{"", "/"}, ancestors("/"))
	assert.Equal(t, []string{""}, ancestors(""))
	assert.Equal(t, []string{"weather"}, ancestors("weather"))
	assert.Equal(t, []string{"a", "a/", "a/b", "a/b/"}, ancestors("a/b/"))
	assert.Equal(t, []string{"", "/", "//", "//a"}, ancestors("//a"))
}

// ancestors must agree with isAncestor over every prefix of the topic.
func TestAncestorsMatchIsAncestor(t *testing.T) {
	topics := []string{"/weather/temp", "/a/b/c/", "//x//y", "plain", "a/", "/", "/weatherman"}
	for _, topic := range topics {
		var expected []string
		for i := 0; i <= len(topic); i++ {
			if isAncestor(topic[:i], topic) {
				expected = append(expected, topic[:i])
			}
		}

		assert.Equal(t, expected, ancestors(topic), topic)
	}
}

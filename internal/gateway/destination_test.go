package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestinationKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "plain host", url: "http://api.example.com/v1/users", expected: "api.example.com"},
		{name: "host with port", url: "http://api.example.com:8080/v1", expected: "api.example.com:8080"},
		{name: "https", url: "https://secure.example.com/", expected: "secure.example.com"},
		{name: "ip address", url: "http://10.0.0.1:9000/x", expected: "10.0.0.1:9000"},
		{name: "no host", url: "/relative/path", expected: DefaultDestination},
		{name: "empty", url: "", expected: DefaultDestination},
		{name: "unparseable", url: "http://exa mple.com/\x7f", expected: DefaultDestination},
		{name: "opaque scheme", url: "mailto:user@example.com", expected: DefaultDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, DestinationKey(tt.url))
		})
	}
}

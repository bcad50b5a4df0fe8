package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*natsHeaderCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("Get on empty header = %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Errorf("Keys on empty header = %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Errorf("Keys = %v", keys)
	}
	// The carrier writes into the underlying message headers.
	if msg.Header.Get("traceparent") != "00-abc-def-01" {
		t.Error("header not set on message")
	}
}

// Package osc adapts a UDP OSC client to the pipeline's Transport interface.
// Downstream patches expect 32-bit OSC floats, so float64 payload values are
// narrowed on the way out.
package osc

import (
	"fmt"

	goosc "github.com/hypebeast/go-osc/osc"
)

// Client sends messages to a single OSC endpoint.
type Client struct {
	client *goosc.Client
}

// NewClient returns a client targeting host:port. No connection is held; each
// send is one UDP datagram.
func NewClient(host string, port int) *Client {
	return &Client{client: goosc.NewClient(host, port)}
}

// Send builds one message and sends it.
func (c *Client) Send(address string, payload []interface{}) error {
	msg, err := buildMessage(address, payload)
	if err != nil {
		return err
	}
	if err := c.client.Send(msg); err != nil {
		return fmt.Errorf("osc send %s: %w", address, err)
	}
	return nil
}

func buildMessage(address string, payload []interface{}) (*goosc.Message, error) {
	msg := goosc.NewMessage(address)
	for i, v := range payload {
		switch x := v.(type) {
		case float64:
			msg.Append(float32(x))
		case float32:
			msg.Append(x)
		case int32:
			msg.Append(x)
		case int:
			msg.Append(int32(x))
		case string:
			msg.Append(x)
		case bool:
			msg.Append(x)
		default:
			return nil, fmt.Errorf("osc: unsupported payload type %T at index %d", v, i)
		}
	}
	return msg, nil
}

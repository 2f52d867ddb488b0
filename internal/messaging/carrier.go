package messaging

import "github.com/segmentio/kafka-go"

// HeaderCarrier exposes Kafka message headers as an otel TextMapCarrier so
// trace context travels with cart events.
type HeaderCarrier struct {
	msg *kafka.Message
}

func NewHeaderCarrier(msg *kafka.Message) *HeaderCarrier {
	return &HeaderCarrier{msg: msg}
}

func (c *HeaderCarrier) Get(key string) string {
	if i := c.index(key); i >= 0 {
		return string(c.msg.Headers[i].Value)
	}
	return ""
}

func (c *HeaderCarrier) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		c.msg.Headers[i].Value = []byte(value)
		return
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *HeaderCarrier) index(key string) int {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			return i
		}
	}
	return -1
}

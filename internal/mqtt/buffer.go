package mqtt

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use.
type ringBuffer struct {
	buf      []bufferedMsg
	head     int // next write position
	count    int
	overflow bool // a message was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
		return
	}
	if !r.overflow {
		log.WithField("capacity", len(r.buf)).Warn("mqtt: offline buffer full, dropping oldest")
		r.overflow = true
	}
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}

// outbox guards a ringBuffer shared by the publish path and the
// reconnect handler.
type outbox struct {
	mu  sync.Mutex
	buf *ringBuffer
}

func newOutbox(capacity int) *outbox {
	return &outbox{buf: newRingBuffer(capacity)}
}

func (o *outbox) hold(msg bufferedMsg) {
	o.mu.Lock()
	o.buf.push(msg)
	o.mu.Unlock()
}

func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.len()
}

// flush sends held messages oldest first. On the first failure the unsent
// remainder is held again and the error returned.
func (o *outbox) flush(send func(bufferedMsg) error) (int, error) {
	o.mu.Lock()
	msgs := o.buf.drainAll()
	o.mu.Unlock()

	for i, msg := range msgs {
		if err := send(msg); err != nil {
			o.mu.Lock()
			for _, m := range msgs[i:] {
				o.buf.push(m)
			}
			o.mu.Unlock()
			return i, err
		}
	}
	return len(msgs), nil
}

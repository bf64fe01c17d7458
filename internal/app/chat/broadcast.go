package chat

// Sink is the outbound side of one connection as seen by the hub.
type Sink interface {
	// ID is the connection id.
	ID() string

	// Enqueue queues a frame without blocking. It returns false if the frame was dropped.
	Enqueue(data []byte) bool

	// Close stops the sink; later Enqueue calls return false.
	Close()
}

// Deliver enqueues data on every sink and returns the ones that refused it.
// Sinks are visited in slice order and each receives the frame at most once.
func Deliver(sinks []Sink, data []byte) []Sink {
	var failed []Sink
	for _, sink := range sinks {
		if !sink.Enqueue(data) {
			failed = append(failed, sink)
		}
	}
	return failed
}

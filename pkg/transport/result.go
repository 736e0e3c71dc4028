package transport

// SendResult reports what happened to each destination of a send. Routing
// and backpressure outcomes live here as values; Send itself errors only on
// invalid input.
type SendResult struct {
	MessageID string
	// Attempted counts resolved destinations; zero for a broadcast into an
	// otherwise empty transport, which is a success with nothing to do.
	Attempted int
	Delivered int
	Failures  []Failure
}

// Failure names one destination that did not accept the message. Err is a
// *RoutingError or *QueueFullError.
type Failure struct {
	AgentID string
	Err     error
}

// Ok reports whether every resolved destination accepted the message.
func (r SendResult) Ok() bool { return len(r.Failures) == 0 }

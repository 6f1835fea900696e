package server

// Client abstracts the connection a session talks over, so sessions can be
// driven by a WebSocket or by an in-memory fake.
type Client interface {
	// ReadRequest blocks until the next request arrives. A message that is
	// not a valid request returns an error wrapping ErrBadRequest.
	ReadRequest() (*Request, error)

	// Send writes one event to the client.
	Send(ev *Event) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}

package station

// Client is one arriving car: a display name and a unique id. Clients are
// immutable values handed from a producer to the queue to a worker; once the
// worker finishes service the value simply goes out of scope.
type Client struct {
	Name string
	ID   int
}

func (c Client) String() string {
	return c.Name
}

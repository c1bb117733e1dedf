package llmservice

import "sync"

// ClientCache keeps the provider client built for the most recent API key.
// The Google client holds a gRPC connection that cannot be closed, so one
// client is reused for every call made with the same key.
type ClientCache[T any] struct {
	mu     sync.Mutex
	key    string
	client T
	ok     bool
}

// Get returns the cached client for apiKey, building it with create on a miss.
// Failed builds are not cached.
func (c *ClientCache[T]) Get(apiKey string, create func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ok && c.key == apiKey {
		return c.client, nil
	}
	client, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	c.key, c.client, c.ok = apiKey, client, true
	return client, nil
}

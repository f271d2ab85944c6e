package servicebus

import (
	"context"
	"fmt"
	"sync"
)

// CommandProcessor owns a subset of bus commands; for each incoming
// invocation it materialises its proxy side and spawns a worker task
// (spec.md §4.7). run_command must not block the bus's receive thread.
type CommandProcessor interface {
	OwnedCommands() []Command
	FactoryEmptyProxy(cmd Command, serial uint32, requestorID string) Proxy
	RunCommand(ctx context.Context, proxy Proxy)
}

// taskKeys tracks in-use StoppableTask keys so re-use is a hard error,
// per spec.md §4.7 ("re-use of a key is a hard error").
type taskKeys struct {
	mu   sync.Mutex
	used map[string]bool
}

func newTaskKeys() *taskKeys {
	return &taskKeys{used: make(map[string]bool)}
}

// claim reserves key, returning an error if it is already in use.
func (k *taskKeys) claim(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.used[key] {
		return fmt.Errorf("servicebus: task key %q already in use", key)
	}
	k.used[key] = true
	return nil
}

func (k *taskKeys) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.used, key)
}

// taskKeyFor builds the `"thread<my_id_serial>"` key spec.md §4.7
// names, scoped by node id and proxy serial.
func taskKeyFor(nodeID string, serial uint32) string {
	return fmt.Sprintf("thread%s_%d", nodeID, serial)
}

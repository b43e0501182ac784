package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
	mu   sync.RWMutex
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call has any effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		var n *snowflake.Node
		n, err = snowflake.NewNode(nodeID)
		if err != nil {
			return
		}
		mu.Lock()
		node = n
		mu.Unlock()
	})
	return err
}

// New generates a time-ordered unique int64 ID.
// Falls back to node 0 when Init was never called (CLI and tests).
func New() int64 {
	return current().Generate().Int64()
}

// NewString returns New() in its decimal string form, used for job and analysis IDs.
func NewString() string {
	return current().Generate().String()
}

func current() *snowflake.Node {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n != nil {
		return n
	}
	_ = Init(0)
	mu.Lock()
	defer mu.Unlock()
	if node == nil {
		// Init ran earlier with an invalid node ID.
		node, _ = snowflake.NewNode(0)
	}
	return node
}

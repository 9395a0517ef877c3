package cluster

import "fmt"

// The coordinator surfaces exactly four error kinds to callers. Per-replica
// failures during fan-out are never returned directly; they are counted
// against the consistency threshold and only the threshold outcome decides
// which of these, if any, the caller sees.

// NodeUnavailableError reports that no replicas could be resolved for a key.
type NodeUnavailableError struct {
	Key string
}

func (e *NodeUnavailableError) Error() string {
	return fmt.Sprintf("no replica nodes available for key %q", e.Key)
}

// ReplicationError reports that a write reached fewer replicas than the
// consistency level requires.
type ReplicationError struct {
	Key       string
	Successes int
	Required  int
}

func (e *ReplicationError) Error() string {
	return fmt.Sprintf("write for key %q reached %d of %d required replicas",
		e.Key, e.Successes, e.Required)
}

// ConsistencyError reports that a read reached fewer replicas than the
// consistency level requires.
type ConsistencyError struct {
	Key       string
	Successes int
	Required  int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("read for key %q reached %d of %d required replicas",
		e.Key, e.Successes, e.Required)
}

// OperationError reports an unexpected internal fault during an operation,
// such as incrementing a non-numeric value.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s for key %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

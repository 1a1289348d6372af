package task

import (
	"fmt"
	"sync"

	"github.com/flowkit/taskstream/kafka"
	"github.com/flowkit/taskstream/logger"
)

// Factory constructs a fresh Task owning the given partitions.
type Factory func(id int, partitions []kafka.TopicPartition) (Task, error)

var _ Manager = (*managerImpl)(nil)

// managerImpl groups partitions into tasks by partition id: partition N of
// every co-partitioned source topic belongs to task N, matching the
// convention the partition group / source-node model assumes (each task's
// PartitionGroup owns exactly the partitions sharing that id).
type managerImpl struct {
	tasks  map[int]Task
	byPart map[kafka.TopicPartition]int

	factory Factory

	mu     sync.RWMutex
	logger logger.Logger
}

// NewManager returns a Manager that creates tasks via factory.
func NewManager(factory Factory, log logger.Logger) Manager {
	return &managerImpl{
		tasks:   make(map[int]Task),
		byPart:  make(map[kafka.TopicPartition]int),
		factory: factory,
		logger:  log.With("component", "task-manager"),
	}
}

func (m *managerImpl) CreateTasks(partitions []kafka.TopicPartition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	grouped := make(map[int][]kafka.TopicPartition)
	for _, p := range partitions {
		id := int(p.Partition)
		if _, exists := m.tasks[id]; exists {
			continue
		}
		grouped[id] = append(grouped[id], p)
	}

	m.logger.Debug("creating tasks", "partitions", partitions)

	for id, parts := range grouped {
		t, err := m.factory(id, parts)
		if err != nil {
			for failedID := range grouped {
				if existing, ok := m.tasks[failedID]; ok {
					_ = existing.Close()
					delete(m.tasks, failedID)
					for _, p := range grouped[failedID] {
						delete(m.byPart, p)
					}
				}
			}
			return fmt.Errorf("create task %d: %w", id, err)
		}

		m.tasks[id] = t
		for _, p := range parts {
			m.byPart[p] = id
		}
	}

	return nil
}

func (m *managerImpl) CloseTasks(partitions []kafka.TopicPartition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closeLocked(partitions)
}

// DeleteTasks permanently removes tasks for partitions; in this in-memory
// task engine there is no persisted state distinguishing a revoke from a
// deletion, so it is the same operation as CloseTasks.
func (m *managerImpl) DeleteTasks(partitions []kafka.TopicPartition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closeLocked(partitions)
}

func (m *managerImpl) closeLocked(partitions []kafka.TopicPartition) error {
	ids := make(map[int]struct{})
	for _, p := range partitions {
		if id, ok := m.byPart[p]; ok {
			ids[id] = struct{}{}
		}
	}

	var lastErr error
	for id := range ids {
		t, ok := m.tasks[id]
		if !ok {
			continue
		}

		if err := t.Close(); err != nil {
			lastErr = fmt.Errorf("close task %d: %w", id, err)
		}

		for _, p := range t.Partitions() {
			delete(m.byPart, p)
		}
		delete(m.tasks, id)
	}

	return lastErr
}

func (m *managerImpl) Tasks() map[kafka.TopicPartition]Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[kafka.TopicPartition]Task, len(m.byPart))
	for p, id := range m.byPart {
		out[p] = m.tasks[id]
	}
	return out
}

func (m *managerImpl) TaskFor(partition kafka.TopicPartition) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byPart[partition]
	if !ok {
		return nil, false
	}
	t, ok := m.tasks[id]
	return t, ok
}

func (m *managerImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for id, t := range m.tasks {
		if err := t.Close(); err != nil {
			lastErr = fmt.Errorf("close task %d: %w", id, err)
		}
	}
	m.tasks = make(map[int]Task)
	m.byPart = make(map[kafka.TopicPartition]int)

	return lastErr
}

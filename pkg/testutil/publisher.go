package testutil

import (
	"context"
	"sync"

	"github.com/lootbox-lab/backend/pkg/pubsub"
)

// MockPublisher records every published pack per topic.
type MockPublisher struct {
	mutex sync.Mutex
	Packs map[string][]*pubsub.Pack
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Packs == nil {
		m.Packs = map[string][]*pubsub.Pack{}
	}

	m.Packs[topic] = append(m.Packs[topic], pack)
	return nil
}

func (m *MockPublisher) Stop(ctx context.Context) error {
	return nil
}

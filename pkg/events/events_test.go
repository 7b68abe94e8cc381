package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_Publish(t *testing.T) {
	a := assert.New(t)

	m := &Memory{}
	a.NoError(m.Publish(context.Background(), SubjectTransaction, "tx-1"))
	a.NoError(m.Publish(context.Background(), SubjectHandCompleted, "hand-1"))
	a.NoError(m.Publish(context.Background(), SubjectTransaction, "tx-2"))

	msgs := m.Messages(SubjectTransaction)
	a.Len(msgs, 2)
	a.Equal("tx-1", msgs[0].Event)
	a.Equal("tx-2", msgs[1].Event)
	a.Len(m.Messages("nope"), 0)
}

func TestNoop_Publish(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), SubjectTransaction, nil))
}

func TestNewNATSPublisher_NoServer(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "test", "")
	assert.Error(t, err)
}

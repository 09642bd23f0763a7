package sink

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
	"tutor-realtime/domain"
	"tutor-realtime/domain/event"
)

func TestConnection_Offer_Until_Buffer_Full(t *testing.T) {
	req := require.New(t)

	// Given a connection with room for two events
	conn := NewConnection("alice", TransportSSE, 2)
	evt := event.NewPresence("bob", true, time.Now())

	// When three events are offered
	// Then the third one is refused
	req.True(conn.Offer(evt))
	req.True(conn.Offer(evt))
	req.False(conn.Offer(evt))
	req.Equal(2, conn.Pending())
}

func TestConnection_Keeps_Order(t *testing.T) {
	req := require.New(t)
	conn := NewConnection("alice", TransportWebSocket, 10)

	for _, u := range []string{"a", "b", "c"} {
		req.True(conn.Offer(event.NewPresence(domain.UserID(u), true, time.Now())))
	}

	for _, u := range []string{"a", "b", "c"} {
		evt := <-conn.Events()
		req.Equal(u, string(evt.UserID))
	}
}

func TestConnection_Close_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	conn := NewConnection("alice", TransportWebSocket, 1)

	conn.Close()
	conn.Close()

	req.True(conn.Closed())
	req.False(conn.Offer(event.NewPresence("bob", true, time.Now())))
	select {
	case <-conn.Done():
	default:
		req.Fail("done should be closed")
	}
}

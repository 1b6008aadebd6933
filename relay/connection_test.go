package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

func TestConn_WritePumpPingsOnInterval(t *testing.T) {
	sess := &MockNetworkSession{}
	pinged := make(chan struct{}, 8)
	sess.On("Ping").Run(func(mock.Arguments) {
		select {
		case pinged <- struct{}{}:
		default:
		}
	}).Return(nil)
	sess.On("Close", "").Return()

	c := NewConn("c1", "u1", "ada", sess)
	c.pingEvery = 5 * time.Millisecond
	go c.WritePump()
	defer c.shutdown()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping within the interval")
	}
}

func TestConn_WritePumpStopsOnPingFailure(t *testing.T) {
	sess := &MockNetworkSession{}
	closed := make(chan struct{})
	sess.On("Ping").Return(errors.New("broken pipe"))
	sess.On("Close", "").Run(func(mock.Arguments) {
		close(closed)
	}).Return()

	c := NewConn("c1", "u1", "ada", sess)
	c.pingEvery = time.Millisecond
	go c.WritePump()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("a failed ping did not tear the connection down")
	}
}

func TestConn_WritePumpDrainsQueuedMessages(t *testing.T) {
	sess := &MockNetworkSession{}
	written := make(chan []byte, 4)
	sess.On("Write", mock.Anything).Run(func(args mock.Arguments) {
		written <- args.Get(0).([]byte)
	}).Return(nil)
	sess.On("Close", "").Return()

	c := NewConn("c1", "u1", "ada", sess)
	c.trySend([]byte(`{"type":"draw"}`))
	go c.WritePump()
	defer c.shutdown()

	select {
	case data := <-written:
		if string(data) != `{"type":"draw"}` {
			t.Fatalf("unexpected frame: %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued message never reached the socket")
	}
}

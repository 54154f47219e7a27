package infrastructure

import (
	"sync"
	"testing"
)

func TestSendRawAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	c := NewClient(hub, nil, "conn-a", 4, nil)
	hub.AttachClient(c)
	hub.BindUser(c, "user-1")

	c.close()
	c.SendRaw([]byte(`{"event":"notification"}`))

	if _, ok := <-c.send; ok {
		t.Fatal("send channel should be closed and empty")
	}
}

func TestSendRawConcurrentWithClose(t *testing.T) {
	t.Parallel()

	// A publisher goroutine racing a connection teardown must never panic
	// with a send on the closed channel.
	for i := 0; i < 50; i++ {
		hub := NewHub()
		c := NewClient(hub, nil, "conn-a", 1, nil)
		hub.AttachClient(c)
		hub.BindUser(c, "user-1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.SendRaw([]byte("x"))
			}
		}()
		go func() {
			defer wg.Done()
			hub.detachClient(c)
		}()
		wg.Wait()
	}
}

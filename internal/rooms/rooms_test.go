package rooms

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("write failed")
	}
	c.frames = append(c.frames, v.(Frame))
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestJoinIsIdempotent(t *testing.T) {
	d := NewDirectory()
	s := NewSession(&fakeConn{})
	d.Join(s, "u1")
	d.Join(s, "u1")
	if got := d.RoomSize("u1"); got != 1 {
		t.Fatalf("expected room size 1, got %d", got)
	}
}

func TestEmitToUnboundRoomIsNoop(t *testing.T) {
	d := NewDirectory()
	if got := d.EmitTo("nobody", "response", "hi"); got != 0 {
		t.Fatalf("expected 0 deliveries, got %d", got)
	}
}

func TestEmitToDeliversFrame(t *testing.T) {
	d := NewDirectory()
	c := &fakeConn{}
	s := NewSession(c)
	d.Join(s, "u1")

	if got := d.EmitTo("u1", "response", "payload"); got != 1 {
		t.Fatalf("expected 1 delivery, got %d", got)
	}
	if c.count() != 1 || c.frames[0].Event != "response" || c.frames[0].Data != "payload" {
		t.Fatalf("unexpected frames: %+v", c.frames)
	}
}

func TestFailedWriteDoesNotStopOthers(t *testing.T) {
	d := NewDirectory()
	bad := &fakeConn{fail: true}
	good := &fakeConn{}
	d.Join(NewSession(bad), "u1")
	d.Join(NewSession(good), "u1")

	if got := d.EmitTo("u1", "response", "x"); got != 1 {
		t.Fatalf("expected 1 successful delivery, got %d", got)
	}
	if good.count() != 1 {
		t.Fatal("healthy session should still receive the frame")
	}
}

func TestLeaveRemovesFromAllRooms(t *testing.T) {
	d := NewDirectory()
	s := NewSession(&fakeConn{})
	d.Join(s, "u1")
	d.Join(s, "u2")

	d.Leave(s)
	if d.RoomSize("u1") != 0 || d.RoomSize("u2") != 0 {
		t.Fatal("leave must empty every room the session joined")
	}
	if got := d.EmitTo("u1", "response", "x"); got != 0 {
		t.Fatalf("expected no delivery after leave, got %d", got)
	}
}

func TestSessionsShareARoom(t *testing.T) {
	d := NewDirectory()
	c1, c2 := &fakeConn{}, &fakeConn{}
	d.Join(NewSession(c1), "u1")
	d.Join(NewSession(c2), "u1")

	if got := d.EmitTo("u1", "response", "x"); got != 2 {
		t.Fatalf("expected 2 deliveries, got %d", got)
	}
}

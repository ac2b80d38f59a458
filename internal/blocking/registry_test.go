package blocking

import (
	"testing"
	"time"
)

func TestNotifyPushWakesFIFOWaiter(t *testing.T) {
	r := New()
	w := &Waiter{ConnID: 1, DBIndex: 0, Keys: []string{"q"}, Wake: make(chan WakeResult, 1)}
	r.Register(w)

	if !r.NotifyPush(0, "q") {
		t.Fatal("expected a waiter to be woken")
	}
	select {
	case res := <-w.Wake:
		if res.Key != "q" || res.TimedOut {
			t.Fatalf("unexpected wake result: %+v", res)
		}
	default:
		t.Fatal("waiter was not sent a wake result")
	}
}

func TestNotifyPushNoWaiter(t *testing.T) {
	r := New()
	if r.NotifyPush(0, "q") {
		t.Fatal("expected no waiter to be woken")
	}
}

func TestNotifyPushFIFOOrder(t *testing.T) {
	r := New()
	w1 := &Waiter{ConnID: 1, DBIndex: 0, Keys: []string{"q"}, Wake: make(chan WakeResult, 1)}
	w2 := &Waiter{ConnID: 2, DBIndex: 0, Keys: []string{"q"}, Wake: make(chan WakeResult, 1)}
	r.Register(w1)
	r.Register(w2)

	r.NotifyPush(0, "q")
	select {
	case <-w1.Wake:
	default:
		t.Fatal("first-registered waiter should be woken first")
	}
	select {
	case <-w2.Wake:
		t.Fatal("second waiter should not be woken yet")
	default:
	}
}

func TestWaiterRegisteredOnMultipleKeysRemovedFromAll(t *testing.T) {
	r := New()
	w := &Waiter{ConnID: 1, DBIndex: 0, Keys: []string{"a", "b"}, Wake: make(chan WakeResult, 1)}
	r.Register(w)

	r.NotifyPush(0, "a")
	if r.NotifyPush(0, "b") {
		t.Fatal("waiter should have been removed from key b once woken via key a")
	}
}

func TestCancelOnDisconnect(t *testing.T) {
	r := New()
	w := &Waiter{ConnID: 1, DBIndex: 0, Keys: []string{"q"}, Wake: make(chan WakeResult, 1)}
	r.Register(w)
	r.Cancel(1)
	if r.NotifyPush(0, "q") {
		t.Fatal("cancelled waiter should not be woken")
	}
}

func TestSweepTimeouts(t *testing.T) {
	r := New()
	base := time.Unix(1000, 0)
	w := &Waiter{ConnID: 1, DBIndex: 0, Keys: []string{"q"}, Deadline: base.Add(time.Second), Wake: make(chan WakeResult, 1)}
	r.Register(w)

	r.SweepTimeouts(func() time.Time { return base })
	select {
	case <-w.Wake:
		t.Fatal("waiter should not time out before its deadline")
	default:
	}

	r.SweepTimeouts(func() time.Time { return base.Add(2 * time.Second) })
	select {
	case res := <-w.Wake:
		if !res.TimedOut {
			t.Fatalf("expected timeout result, got %+v", res)
		}
	default:
		t.Fatal("waiter should have timed out")
	}
}

package cache

import (
	"testing"
	"time"
)

func TestRatings_GetSet(t *testing.T) {
	c := NewRatings(10, time.Hour)

	if _, ok := c.Get("n1"); ok {
		t.Error("hit on an empty cache")
	}

	c.Set("n1", 7)
	if got, ok := c.Get("n1"); !ok || got != 7 {
		t.Errorf("Get = (%d, %t), want (7, true)", got, ok)
	}

	c.Set("n1", 9)
	if got, _ := c.Get("n1"); got != 9 {
		t.Errorf("Get after overwrite = %d, want 9", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestRatings_Expiry(t *testing.T) {
	c := NewRatings(10, 10*time.Millisecond)
	c.Set("n1", 5)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("n1"); ok {
		t.Error("expired entry still served")
	}
}

func TestRatings_CapacityEviction(t *testing.T) {
	c := NewRatings(3, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("d", 4)
	if c.Len() != 3 {
		t.Errorf("Len = %d, want capacity 3", c.Len())
	}
	if got, ok := c.Get("d"); !ok || got != 4 {
		t.Error("most recent entry evicted")
	}
}

package cache

import (
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	cache := NewMemory()

	if err := cache.Set("share:abc", `{"id":"abc"}`, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := cache.Get("share:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != `{"id":"abc"}` {
		t.Errorf("Get = (%q, %v), want cached value", value, ok)
	}
}

func TestMemory_MissOnAbsentKey(t *testing.T) {
	cache := NewMemory()

	_, ok, err := cache.Get("share:missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("absent key reported as hit")
	}
}

func TestMemory_AbsoluteExpiry(t *testing.T) {
	cache := NewMemory()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Set("csrf:abc", "token", time.Hour)

	// A read does not slide the expiry
	current = current.Add(59 * time.Minute)
	if _, ok, _ := cache.Get("csrf:abc"); !ok {
		t.Fatal("entry expired early")
	}

	current = current.Add(2 * time.Minute)
	if _, ok, _ := cache.Get("csrf:abc"); ok {
		t.Fatal("entry survived past its TTL")
	}
}

func TestMemory_Delete(t *testing.T) {
	cache := NewMemory()
	cache.Set("share:abc", "v", time.Hour)

	if err := cache.Delete("share:abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := cache.Get("share:abc"); ok {
		t.Error("deleted key still cached")
	}

	// Deleting an absent key is not an error
	if err := cache.Delete("share:abc"); err != nil {
		t.Errorf("Delete on absent key = %v", err)
	}
}

func TestMemory_Overwrite(t *testing.T) {
	cache := NewMemory()
	cache.Set("share:abc", "old", time.Hour)
	cache.Set("share:abc", "new", time.Hour)

	value, ok, _ := cache.Get("share:abc")
	if !ok || value != "new" {
		t.Errorf("Get = (%q, %v), want overwritten value", value, ok)
	}
}

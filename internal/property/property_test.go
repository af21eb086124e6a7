// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	s := NewStore()
	if got := s.Get("missing", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %q", got)
	}
	s.Set("screen.status", "-1")
	if got := s.GetInt32("screen.status", 1); got != -1 {
		t.Errorf("GetInt32 = %d, want -1", got)
	}
	s.Set("screen.status", "junk")
	if got := s.GetInt32("screen.status", 7); got != 7 {
		t.Errorf("GetInt32 on junk = %d, want default", got)
	}
}

func TestMonitorDeliversChanges(t *testing.T) {
	s := NewStore()
	m, err := s.Monitor("screen.status")
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	defer m.Close()

	s.Set("screen.status", "-1")
	select {
	case v := <-m.C():
		if v != "-1" {
			t.Fatalf("delivered %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	// Other keys stay silent.
	s.Set("other", "1")
	select {
	case v := <-m.C():
		t.Fatalf("unexpected notification %q", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNilStoreMonitorFails(t *testing.T) {
	var s *Store
	if _, err := s.Monitor("any"); err == nil {
		t.Fatal("nil store subscription succeeded")
	}
}

package ratelimit

import (
	"fmt"
	"testing"
)

func TestAllowBurst(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst admits initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst rejects",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New(tt.rps, tt.burst)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if k.Allow("10.0.0.1") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	k := New(1, 1)

	k.Allow("10.0.0.1")
	if k.Allow("10.0.0.1") {
		t.Error("first key should be exhausted")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("second key should have its own bucket")
	}
}

func TestBucketMapResetAtCap(t *testing.T) {
	k := New(1, 1)
	for i := 0; i < maxKeys; i++ {
		k.Allow(fmt.Sprintf("10.%d.%d.%d", i>>16, (i>>8)&0xff, i&0xff))
	}

	// A new key at the cap resets the map; the previously exhausted keys
	// refill instead of the map growing without bound.
	k.Allow("192.168.0.1")
	if !k.Allow("10.0.0.0") {
		t.Error("expected reset buckets to admit the request")
	}
	if len(k.buckets) > maxKeys {
		t.Errorf("bucket map grew past cap: %d", len(k.buckets))
	}
}

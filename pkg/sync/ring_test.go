package sync

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Consistency(t *testing.T) {
	r := newRing(64, replicasPerStripe)

	for i := 0; i < 256; i++ {
		key := []byte(fmt.Sprintf("pool%d", i))
		stripe := r.stripe(key)
		assert.True(t, stripe >= 0 && stripe < 64)

		for j := 0; j < 64; j++ {
			assert.Equal(t, stripe, r.stripe(key))
		}
	}

	// Rebuilding the ring keeps every assignment.
	rebuilt := newRing(64, replicasPerStripe)
	for i := 0; i < 256; i++ {
		key := []byte(fmt.Sprintf("pool%d", i))
		assert.Equal(t, r.stripe(key), rebuilt.stripe(key))
	}
}

func TestRing_Distribution(t *testing.T) {
	stripes := 5
	iterations := 500000
	marginOfError := 0.1
	expectedFrequency := iterations / stripes

	r := newRing(uint(stripes), replicasPerStripe)

	hits := make(map[int]int)
	for i := 0; i < iterations; i++ {
		hits[r.stripe([]byte(fmt.Sprintf("key%d", i)))]++
	}

	assert.Len(t, hits, stripes)
	for _, hitCount := range hits {
		assert.True(t, math.Abs(float64(hitCount-expectedFrequency)) <= marginOfError*float64(expectedFrequency))
	}
}

func TestRing_SingleStripe(t *testing.T) {
	r := newRing(1, replicasPerStripe)
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, r.stripe([]byte(fmt.Sprintf("key%d", i))))
	}
}

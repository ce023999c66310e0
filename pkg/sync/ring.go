package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring mapping keys onto stripe indexes.
type ring struct {
	points *treemap.Map

	// first is the value of the lowest point, where keys hashing past the
	// last point wrap around to.
	first int
}

// newRing places replicas points on the ring for each of stripes indexes.
func newRing(stripes, replicas uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	for stripe := uint(0); stripe < stripes; stripe++ {
		var seed [8]byte
		binary.LittleEndian.PutUint64(seed[:], uint64(stripe))
		stripeHash, _ := murmur3.Sum128(seed[:])

		for replica := uint(0); replica < replicas; replica++ {
			var point [12]byte
			binary.LittleEndian.PutUint64(point[:8], stripeHash)
			binary.LittleEndian.PutUint32(point[8:], uint32(replica))
			points.Put(hashKey(point[:]), int(stripe))
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// stripe returns the stripe index owning key.
func (r *ring) stripe(key []byte) int {
	if _, stripe := r.points.Ceiling(hashKey(key)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

func hashKey(key []byte) int64 {
	h, _ := murmur3.Sum128(key)
	return int64(h)
}

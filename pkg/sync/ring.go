package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over the shards 0..n-1. Each shard owns
// replicas points on the ring.
type ring struct {
	points *treemap.Map

	// Cached, since treemap.Map.Min() is O(log n).
	first int
}

func newRing(shards, replicas uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	var buf [12]byte
	for shard := uint(0); shard < shards; shard++ {
		binary.LittleEndian.PutUint64(buf[:8], uint64(shard))
		for replica := uint(0); replica < replicas; replica++ {
			binary.LittleEndian.PutUint32(buf[8:], uint32(replica))
			points.Put(hash(buf[:]), int(shard))
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// shard returns the shard owning the first point at or after the key's hash,
// wrapping around to the start of the ring.
func (r *ring) shard(key []byte) int {
	if _, shard := r.points.Ceiling(hash(key)); shard != nil {
		return shard.(int)
	}
	return r.first
}

func hash(data []byte) int64 {
	h, _ := murmur3.Sum128(data)
	return int64(h)
}

package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int64
	}

	// Bits is a small bitset keyed by register numbers and other
	// non-negative dense ids.
	Bits[K Key] struct {
		b uint64
	}
)

func MakeBits[K Key](ks ...K) (s Bits[K]) {
	for _, k := range ks {
		s.Set(k)
	}

	return s
}

func (s *Bits[K]) Set(k K) {
	s.b |= 1 << uint(k)
}

func (s Bits[K]) IsSet(k K) bool {
	return s.b&(1<<uint(k)) != 0
}

func (s *Bits[K]) Clear(k K) {
	s.b &^= 1 << uint(k)
}

func (s Bits[K]) Size() int {
	return bits.OnesCount64(s.b)
}

func (s Bits[K]) Range(f func(k K) bool) {
	for b := s.b; b != 0; b &= b - 1 {
		if !f(K(bits.TrailingZeros64(b))) {
			return
		}
	}
}

func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}

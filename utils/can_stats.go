package utils

import (
	"fmt"
	"slices"
	"strings"
)

type FormatStats struct {
	Total uint64
	Err   uint64
	RTR   uint64
}

// FrameStats counts received frames by format, flags and identifier.
type FrameStats struct {
	RX  uint64
	EFF FormatStats
	SFF FormatStats
	IDs map[uint32]uint64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{IDs: map[uint32]uint64{}}
}

func (s *FrameStats) Add(f Frame) {
	s.RX++
	bucket := &s.SFF
	if f.Extended {
		bucket = &s.EFF
	}
	bucket.Total++
	if f.Error {
		bucket.Err++
	}
	if f.Remote {
		bucket.RTR++
	}
	s.IDs[f.ID]++
}

func (s *FrameStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "RX Total: %d\n", s.RX)
	fmt.Fprintf(&b, "EFF Total: %d\tERR: %d\tRTR: %d\n", s.EFF.Total, s.EFF.Err, s.EFF.RTR)
	fmt.Fprintf(&b, "SFF Total: %d\tERR: %d\tRTR: %d\n", s.SFF.Total, s.SFF.Err, s.SFF.RTR)
	b.WriteString("Messages by CAN ID\n")

	ids := make([]uint32, 0, len(s.IDs))
	for id := range s.IDs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "%08x → #%d\n", id, s.IDs[id])
	}
	return b.String()
}

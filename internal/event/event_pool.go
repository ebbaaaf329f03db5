package event

import "sync"

// Raw frames are the only high-rate allocation on the hotpath, so they are
// pooled. All other event types are small and infrequent enough to allocate.
var rawMessagePool = sync.Pool{
	New: func() any { return &RawMessageEvent{} },
}

// AcquireRawMessageEvent returns a reset RawMessageEvent from the pool.
func AcquireRawMessageEvent() *RawMessageEvent {
	return rawMessagePool.Get().(*RawMessageEvent)
}

// ReleaseRawMessageEvent resets the event and returns it to the pool.
// The caller must not retain the event or its Raw slice afterwards.
func ReleaseRawMessageEvent(e *RawMessageEvent) {
	e.Seq = 0
	e.Ts = 0
	e.Raw = e.Raw[:0]
	rawMessagePool.Put(e)
}

// Warmup pre-populates the pool to avoid allocation bursts at connect time.
func Warmup() {
	const n = 64
	evs := make([]*RawMessageEvent, 0, n)
	for i := 0; i < n; i++ {
		evs = append(evs, AcquireRawMessageEvent())
	}
	for _, e := range evs {
		ReleaseRawMessageEvent(e)
	}
}

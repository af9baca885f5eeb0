package service

// Source names where a read was served from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceRemote  Source = "remote"
	SourceOffline Source = "offline-cache"
)

// ReadResult is the outcome of a read that may fall back to cached data.
type ReadResult[T any] struct {
	Value   T      `json:"value"`
	Found   bool   `json:"found"`
	Offline bool   `json:"offline"`
	Source  Source `json:"source"`
}

// decide reports whether the cache alone can serve the read.
func decide(forceOnline, cacheHit bool) bool {
	return cacheHit && !forceOnline
}

// settle picks the remote outcome when the remote call succeeded and the cached value otherwise.
func settle[T any](cached T, cacheHit bool, remote T, remoteFound bool, remoteErr error) ReadResult[T] {
	if remoteErr == nil {
		return ReadResult[T]{Value: remote, Found: remoteFound, Source: SourceRemote}
	}
	return ReadResult[T]{Value: cached, Found: cacheHit, Offline: true, Source: SourceOffline}
}

// Fallback resolves a read with three tiers: the cache when it can serve and the read is not forced
// online, then the remote, then whatever the cache holds flagged offline.
// fetch reports the remote value, whether it was found, and a transport or protocol error.
func Fallback[T any](forceOnline bool, cached T, cacheHit bool, fetch func() (T, bool, error)) ReadResult[T] {
	if decide(forceOnline, cacheHit) {
		return ReadResult[T]{Value: cached, Found: true, Source: SourceCache}
	}
	value, found, err := fetch()
	return settle(cached, cacheHit, value, found, err)
}

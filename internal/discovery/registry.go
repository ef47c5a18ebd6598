package discovery

import "sync"

// Registry is a thread-safe map from device serial to its last discovered
// network location, partitioned into online (advertisement currently
// visible) and offline (seen before, advertisement withdrawn) sets. A serial
// appears in at most one partition at a time. All access goes through the
// registry's own methods; callers only ever receive copies.
type Registry struct {
	mu      sync.RWMutex
	online  map[string]ServiceInfo
	offline map[string]ServiceInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		online:  make(map[string]ServiceInfo),
		offline: make(map[string]ServiceInfo),
	}
}

// Upsert inserts or replaces the online entry for info.Serial. An offline
// entry for the same serial is promoted back to online.
func (r *Registry) Upsert(info ServiceInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.offline, info.Serial)
	r.online[info.Serial] = info
}

// MarkOffline moves the entry for serial to the offline partition. Unknown
// serials are ignored.
func (r *Registry) MarkOffline(serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.online[serial]
	if !ok {
		return
	}
	delete(r.online, serial)
	r.offline[serial] = info
}

// Remove deletes the entry for serial from both partitions. Removing an
// absent serial is not an error.
func (r *Registry) Remove(serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.online, serial)
	delete(r.offline, serial)
}

// Lookup returns the entry for serial from either partition.
func (r *Registry) Lookup(serial string) (ServiceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.online[serial]; ok {
		return info, true
	}
	info, ok := r.offline[serial]
	return info, ok
}

// Online returns a copy of the online partition.
func (r *Registry) Online() map[string]ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyServices(r.online)
}

// Offline returns a copy of the offline partition.
func (r *Registry) Offline() map[string]ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyServices(r.offline)
}

// Snapshot returns copies of both partitions taken under a single lock, so
// the two maps are consistent with each other.
func (r *Registry) Snapshot() (online, offline map[string]ServiceInfo) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyServices(r.online), copyServices(r.offline)
}

func copyServices(src map[string]ServiceInfo) map[string]ServiceInfo {
	dst := make(map[string]ServiceInfo, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

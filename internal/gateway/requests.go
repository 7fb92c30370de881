package gateway

// recentRequests 记录最近接受的请求ID（固定容量，先进先出淘汰）
// 网络层重复投递同一请求时直接返回 DUPLICATE
type recentRequests struct {
	ring []string
	next int
	seen map[string]struct{}
}

func newRecentRequests(capacity int) *recentRequests {
	return &recentRequests{
		ring: make([]string, capacity),
		seen: make(map[string]struct{}, capacity),
	}
}

func (r *recentRequests) contains(id string) bool {
	_, ok := r.seen[id]
	return ok
}

func (r *recentRequests) add(id string) {
	if id == "" || r.contains(id) {
		return
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.seen, old)
	}
	r.ring[r.next] = id
	r.seen[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
}

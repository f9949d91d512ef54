package radio

// historyCap is how many recently played tracks are held for repetition
// checks. The 21st insert evicts the 1st.
const historyCap = 20

// HistoryRing is a fixed-capacity FIFO of track fingerprints with O(1)
// membership checks. Not safe for concurrent use; the engine loop owns it.
type HistoryRing struct {
	cap   int
	order []Fingerprint
	count map[Fingerprint]int
}

func NewHistoryRing(capacity int) *HistoryRing {
	if capacity <= 0 {
		capacity = historyCap
	}
	return &HistoryRing{
		cap:   capacity,
		order: make([]Fingerprint, 0, capacity),
		count: make(map[Fingerprint]int, capacity),
	}
}

// Add records fp as most recent, evicting the oldest entry when full.
// Duplicates are allowed in the ring; membership holds until every copy
// has been evicted.
func (h *HistoryRing) Add(fp Fingerprint) {
	if len(h.order) == h.cap {
		old := h.order[0]
		h.order = h.order[1:]
		if n := h.count[old] - 1; n > 0 {
			h.count[old] = n
		} else {
			delete(h.count, old)
		}
	}
	h.order = append(h.order, fp)
	h.count[fp]++
}

func (h *HistoryRing) Contains(fp Fingerprint) bool {
	return h.count[fp] > 0
}

func (h *HistoryRing) Len() int { return len(h.order) }

// Snapshot returns the fingerprints oldest first.
func (h *HistoryRing) Snapshot() []Fingerprint {
	out := make([]Fingerprint, len(h.order))
	copy(out, h.order)
	return out
}

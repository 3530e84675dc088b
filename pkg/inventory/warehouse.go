package inventory

import (
	"strings"

	"go.uber.org/zap"
)

// SectorCount is the fixed number of sectors in a warehouse.
const SectorCount = 10

// Policy selects how a product is admitted into a full sector.
type Policy string

const (
	// PolicyEvict drops the least popular product of the natural sector.
	PolicyEvict Policy = "evict"
	// PolicySpill places the product in the next sector with room, evicting only if none has any.
	PolicySpill Policy = "spill"
)

// ParsePolicy maps a configuration string onto a Policy. Empty means PolicyEvict.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(PolicyEvict):
		return PolicyEvict, nil
	case string(PolicySpill):
		return PolicySpill, nil
	default:
		return "", ErrUnknownPolicy
	}
}

// Stats counts warehouse activity since construction.
type Stats struct {
	Products          int   `json:"products"`
	Admissions        int64 `json:"admissions"`
	Evictions         int64 `json:"evictions"`
	Spills            int64 `json:"spills"`
	Deletions         int64 `json:"deletions"`
	Purchases         int64 `json:"purchases"`
	RejectedPurchases int64 `json:"rejected_purchases"`
}

// Warehouse routes products to sectors by id and keeps every sector within capacity.
// It is not safe for concurrent use; wrap it in a Service for that.
type Warehouse struct {
	sectors        [SectorCount]*Sector
	logger         *zap.Logger
	metrics        *Metrics
	spillRebalance bool
	stats          Stats
}

// Option configures a Warehouse.
type Option func(*Warehouse)

// WithLogger sets the logger for eviction, spill and purchase events. Nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Warehouse) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics records warehouse activity into m. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(w *Warehouse) { w.metrics = m }
}

// WithSpillRebalance makes spill-over admission restore heap order in the sector
// that received the product. By default the natural sector is rebalanced instead,
// which leaves the receiving sector unordered until its next rebuild.
func WithSpillRebalance() Option {
	return func(w *Warehouse) { w.spillRebalance = true }
}

// New returns a warehouse with every sector empty.
func New(opts ...Option) *Warehouse {
	w := &Warehouse{logger: zap.NewNop()}
	for i := range w.sectors {
		w.sectors[i] = &Sector{}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SectorIndex returns the natural sector of id. Negative ids wrap into 0..9.
func SectorIndex(id int) int {
	k := id % SectorCount
	if k < 0 {
		k += SectorCount
	}
	return k
}

// AddProduct admits a product into its natural sector, evicting the least
// popular product first if the sector is full.
func (w *Warehouse) AddProduct(id int, name string, stock, day, demand int) {
	w.add(id, name, stock, day, demand)
}

func (w *Warehouse) add(id int, name string, stock, day, demand int) Item {
	k := SectorIndex(id)
	w.evictIfNeeded(id)
	p := w.addToEnd(k, id, name, stock, day, demand)
	w.fixHeap(id)
	w.metrics.admitted("natural")
	return itemOf(p, k)
}

func (w *Warehouse) addToEnd(sector, id int, name string, stock, day, demand int) *Product {
	p := NewProduct(id, name, stock, day, demand)
	p.SetLastPurchaseDay(day)
	w.sectors[sector].Add(p)
	w.stats.Admissions++
	w.stats.Products++
	w.metrics.observeSector(sector, w.sectors[sector].Size())
	return p
}

// fixHeap rebuilds the natural sector of id.
func (w *Warehouse) fixHeap(id int) {
	w.sectors[SectorIndex(id)].rebuild()
}

func (w *Warehouse) evictIfNeeded(id int) {
	s := w.sectors[SectorIndex(id)]
	if !s.Full() {
		return
	}
	evicted := s.Min()
	s.Swap(1, s.Size())
	s.DeleteLast()
	s.Sink(1)
	w.stats.Evictions++
	w.stats.Products--
	w.metrics.evicted()
	w.logger.Debug("evicted product",
		zap.Int("sector", SectorIndex(id)),
		zap.Int("evicted_id", evicted.ID()),
		zap.Int("demand", evicted.Demand()),
		zap.Int("incoming_id", id))
}

// RestockProduct adds amount to the stock of id. Unknown ids are ignored.
func (w *Warehouse) RestockProduct(id, amount int) {
	s := w.sectors[SectorIndex(id)]
	if i := s.indexOf(id); i > 0 {
		s.Get(i).UpdateStock(amount)
	}
}

// DeleteProduct removes id from its natural sector in O(log n). Unknown ids are ignored.
// The last product takes the vacated slot and is moved down or up from there.
func (w *Warehouse) DeleteProduct(id int) {
	k := SectorIndex(id)
	s := w.sectors[k]
	i := s.indexOf(id)
	if i == 0 {
		return
	}
	s.Swap(i, s.Size())
	s.DeleteLast()
	if i <= s.Size() {
		s.Sink(i)
		s.Swim(i)
	}
	w.stats.Deletions++
	w.stats.Products--
	w.metrics.observeSector(k, s.Size())
}

// PurchaseProduct sells amount units of id on the given day.
//
// The natural sector is scanned in heap order. If any product visited before
// or at the match holds less stock than amount, the whole purchase is dropped,
// even when that product is not the one being bought.
func (w *Warehouse) PurchaseProduct(id, day, amount int) {
	s := w.sectors[SectorIndex(id)]
	for i := 1; i <= s.Size(); i++ {
		p := s.Get(i)
		if amount > p.Stock() {
			w.rejectPurchase(id, p)
			return
		}
		if p.ID() != id {
			continue
		}
		p.SetLastPurchaseDay(day)
		p.SetStock(p.Stock() - amount)
		p.UpdateDemand(amount)
		s.Sink(i)
		w.stats.Purchases++
		w.metrics.purchased(true)
		return
	}
	w.rejectPurchase(id, nil)
}

func (w *Warehouse) rejectPurchase(id int, blockedBy *Product) {
	w.stats.RejectedPurchases++
	w.metrics.purchased(false)
	if blockedBy == nil {
		w.logger.Debug("purchase of unknown product ignored", zap.Int("id", id))
		return
	}
	w.logger.Debug("purchase dropped on insufficient stock",
		zap.Int("id", id), zap.Int("blocked_by", blockedBy.ID()), zap.Int("stock", blockedBy.Stock()))
}

// BetterAddProduct admits a product without evicting while any sector has room.
// A full natural sector hands the product to the next sector with a free slot,
// scanning forward and wrapping from 9 to 0.
func (w *Warehouse) BetterAddProduct(id int, name string, stock, day, demand int) {
	w.betterAdd(id, name, stock, day, demand)
}

func (w *Warehouse) betterAdd(id int, name string, stock, day, demand int) Item {
	natural := SectorIndex(id)
	if !w.sectors[natural].Full() {
		return w.add(id, name, stock, day, demand)
	}
	target := (natural + 1) % SectorCount
	for target != natural && w.sectors[target].Full() {
		target = (target + 1) % SectorCount
	}
	if target == natural {
		return w.add(id, name, stock, day, demand)
	}
	p := w.addToEnd(target, id, name, stock, day, demand)
	if w.spillRebalance {
		w.sectors[target].rebuild()
	} else {
		w.fixHeap(id)
	}
	w.stats.Spills++
	w.metrics.spilled()
	w.metrics.admitted("spill")
	w.logger.Debug("spilled product into sibling sector",
		zap.Int("id", id), zap.Int("natural", natural), zap.Int("sector", target))
	return itemOf(p, target)
}

// Admit dispatches to AddProduct or BetterAddProduct and returns the admitted
// product as stored, including the sector that received it.
func (w *Warehouse) Admit(policy Policy, id int, name string, stock, day, demand int) Item {
	if policy == PolicySpill {
		return w.betterAdd(id, name, stock, day, demand)
	}
	return w.add(id, name, stock, day, demand)
}

// Find looks id up in its natural sector, then in every other sector so
// spilled products are found too.
func (w *Warehouse) Find(id int) (Item, bool) {
	natural := SectorIndex(id)
	for n := 0; n < SectorCount; n++ {
		k := (natural + n) % SectorCount
		if i := w.sectors[k].indexOf(id); i > 0 {
			return itemOf(w.sectors[k].Get(i), k), true
		}
	}
	return Item{}, false
}

// Sectors exposes the sectors for inspection, indexed by sector number.
func (w *Warehouse) Sectors() [SectorCount]*Sector {
	return w.sectors
}

// Stats returns a copy of the activity counters.
func (w *Warehouse) Stats() Stats {
	return w.stats
}

// String renders every sector on its own tab-indented line inside brackets.
func (w *Warehouse) String() string {
	var b strings.Builder
	b.WriteString("[\n")
	for _, s := range w.sectors {
		b.WriteString("\t")
		b.WriteString(s.String())
		b.WriteString("\n")
	}
	b.WriteString("]")
	return b.String()
}

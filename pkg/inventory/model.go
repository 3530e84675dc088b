package inventory

import "github.com/samber/lo"

// Item is a read-only view of a product for transport layers.
type Item struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Stock           int    `json:"stock"`
	LastPurchaseDay int    `json:"last_purchase_day"`
	Demand          int    `json:"demand"`
	Sector          int    `json:"sector"`
}

// SectorView lists the products of one sector in heap order.
type SectorView struct {
	Index int    `json:"index"`
	Size  int    `json:"size"`
	Items []Item `json:"items"`
}

// Snapshot captures every sector and the counters at one point in time.
type Snapshot struct {
	Sectors []SectorView `json:"sectors"`
	Stats   Stats        `json:"stats"`
}

func itemOf(p *Product, sector int) Item {
	return Item{
		ID:              p.ID(),
		Name:            p.Name(),
		Stock:           p.Stock(),
		LastPurchaseDay: p.LastPurchaseDay(),
		Demand:          p.Demand(),
		Sector:          sector,
	}
}

// Snapshot copies the current state of w.
func (w *Warehouse) Snapshot() Snapshot {
	views := make([]SectorView, SectorCount)
	for k, s := range w.sectors {
		views[k] = SectorView{
			Index: k,
			Size:  s.Size(),
			Items: lo.Map(s.Products(), func(p *Product, _ int) Item { return itemOf(p, k) }),
		}
	}
	return Snapshot{Sectors: views, Stats: w.stats}
}

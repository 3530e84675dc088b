package inventory

import "fmt"

// Popularity is the ranking key of a product. Lower keys are evicted first.
type Popularity struct {
	Demand          int
	LastPurchaseDay int
}

// Less orders keys by demand, then by how long ago the product last sold.
func (p Popularity) Less(other Popularity) bool {
	if p.Demand != other.Demand {
		return p.Demand < other.Demand
	}
	return p.LastPurchaseDay < other.LastPurchaseDay
}

// Product is a single stocked item held in one sector slot.
type Product struct {
	id              int
	name            string
	stock           int
	lastPurchaseDay int
	demand          int
}

// NewProduct builds a product; the warehouse sets the purchase day on admission.
func NewProduct(id int, name string, stock, day, demand int) *Product {
	return &Product{
		id:              id,
		name:            name,
		stock:           stock,
		lastPurchaseDay: day,
		demand:          demand,
	}
}

func (p *Product) ID() int { return p.id }
func (p *Product) Name() string { return p.name }
func (p *Product) Stock() int { return p.stock }
func (p *Product) Demand() int { return p.demand }
func (p *Product) SetStock(n int) { p.stock = n }

// UpdateStock adds delta to the stock. Callers keep the result non-negative.
func (p *Product) UpdateStock(delta int) {
	p.stock += delta
}

// UpdateDemand grows the popularity signal after a sale.
func (p *Product) UpdateDemand(amount int) {
	p.demand += amount
}

func (p *Product) LastPurchaseDay() int { return p.lastPurchaseDay }

func (p *Product) SetLastPurchaseDay(day int) {
	p.lastPurchaseDay = day
}

// Popularity returns the key the sector heap is ordered by.
func (p *Product) Popularity() Popularity {
	return Popularity{Demand: p.demand, LastPurchaseDay: p.lastPurchaseDay}
}

// Less reports whether p is less popular than other.
func (p *Product) Less(other *Product) bool {
	return p.Popularity().Less(other.Popularity())
}

func (p *Product) String() string {
	return fmt.Sprintf("(%d,%s,%d,%d,%d)", p.id, p.name, p.stock, p.lastPurchaseDay, p.demand)
}

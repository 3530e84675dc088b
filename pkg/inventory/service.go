package inventory

import (
	"context"
	"time"
)

// operationTimeout bounds both the wait for the loop to accept a command and the wait for its answer.
const operationTimeout = 2 * time.Second

// AddRequest carries everything needed to admit a product.
type AddRequest struct {
	ID     int
	Name   string
	Stock  int
	Day    int
	Demand int
	Policy Policy
}

// command is a unit of work the loop runs against the warehouse it owns.
type command struct {
	run   func(w *Warehouse) commandResult
	reply chan commandResult
}

// commandResult carries whatever the command produced back to the caller.
type commandResult struct {
	item     Item
	snapshot Snapshot
	text     string
	err      error
}

// Service owns a warehouse on a single goroutine so callers never share it directly.
type Service struct {
	warehouse *Warehouse
	commands  chan command
	quit      chan struct{}
	done      chan struct{}
}

// NewService starts the loop immediately; close it with Close.
func NewService(w *Warehouse) *Service {
	svc := &Service{
		warehouse: w,
		commands:  make(chan command),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go svc.loop()
	return svc
}

// loop runs commands one at a time so the warehouse needs no locking.
func (s *Service) loop() {
	defer close(s.done)
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- cmd.run(s.warehouse)
		case <-s.quit:
			return
		}
	}
}

// do hands fn to the loop and waits for the result.
func (s *Service) do(ctx context.Context, fn func(w *Warehouse) commandResult) (commandResult, error) {
	// Buffered so the loop never blocks on a caller that already gave up.
	reply := make(chan commandResult, 1)
	cmd := command{run: fn, reply: reply}

	select {
	case s.commands <- cmd:
	case <-s.quit:
		return commandResult{}, ErrClosed
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	case <-time.After(operationTimeout):
		return commandResult{}, ErrBusy
	}

	select {
	case res := <-reply:
		return res, res.err
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	case <-time.After(operationTimeout):
		return commandResult{}, ErrTimeout
	}
}

// Add admits a product with the requested policy and reports where it ended up.
func (s *Service) Add(ctx context.Context, req AddRequest) (Item, error) {
	res, err := s.do(ctx, func(w *Warehouse) commandResult {
		return commandResult{item: w.Admit(req.Policy, req.ID, req.Name, req.Stock, req.Day, req.Demand)}
	})
	return res.item, err
}

// Restock adds amount to the product's stock. Unknown ids are silently ignored.
func (s *Service) Restock(ctx context.Context, id, amount int) error {
	_, err := s.do(ctx, func(w *Warehouse) commandResult {
		w.RestockProduct(id, amount)
		return commandResult{}
	})
	return err
}

// Purchase records a sale. Rejected purchases are silently ignored.
func (s *Service) Purchase(ctx context.Context, id, day, amount int) error {
	_, err := s.do(ctx, func(w *Warehouse) commandResult {
		w.PurchaseProduct(id, day, amount)
		return commandResult{}
	})
	return err
}

// Delete removes the product from its natural sector.
func (s *Service) Delete(ctx context.Context, id int) error {
	_, err := s.do(ctx, func(w *Warehouse) commandResult {
		w.DeleteProduct(id)
		return commandResult{}
	})
	return err
}

// Get returns the product or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int) (Item, error) {
	res, err := s.do(ctx, func(w *Warehouse) commandResult {
		item, ok := w.Find(id)
		if !ok {
			return commandResult{err: ErrNotFound}
		}
		return commandResult{item: item}
	})
	return res.item, err
}

// Snapshot copies every sector and the counters.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	res, err := s.do(ctx, func(w *Warehouse) commandResult {
		return commandResult{snapshot: w.Snapshot()}
	})
	return res.snapshot, err
}

// Render returns the bracketed text rendering of the warehouse.
func (s *Service) Render(ctx context.Context) (string, error) {
	res, err := s.do(ctx, func(w *Warehouse) commandResult {
		return commandResult{text: w.String()}
	})
	return res.text, err
}

// Apply runs fn against the owned warehouse inside the loop. fn must not retain w.
func (s *Service) Apply(ctx context.Context, fn func(w *Warehouse) error) error {
	_, err := s.do(ctx, func(w *Warehouse) commandResult {
		return commandResult{err: fn(w)}
	})
	return err
}

// Close stops the loop and waits for it to exit. Calls made afterwards return ErrClosed.
func (s *Service) Close() {
	close(s.quit)
	<-s.done
}

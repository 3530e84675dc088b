// Package script reads line-oriented warehouse operation scripts and replays them.
//
// One operation per line; blank lines and lines starting with # are skipped:
//
//	add       <id> <name> <stock> <day> <demand>
//	betteradd <id> <name> <stock> <day> <demand>
//	restock   <id> <amount>
//	purchase  <id> <day> <amount>
//	delete    <id>
//
// Verbs are case-insensitive and the long forms addProduct, betterAddProduct,
// restockProduct, purchaseProduct and deleteProduct are accepted too.
package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Verb names an operation.
type Verb string

const (
	VerbAdd       Verb = "add"
	VerbBetterAdd Verb = "betteradd"
	VerbRestock   Verb = "restock"
	VerbPurchase  Verb = "purchase"
	VerbDelete    Verb = "delete"
)

// Op is one parsed script line. Fields that a verb does not use stay zero.
type Op struct {
	Line   int
	Verb   Verb
	ID     int
	Name   string
	Stock  int
	Day    int
	Demand int
	Amount int
}

func (o Op) String() string {
	switch o.Verb {
	case VerbAdd, VerbBetterAdd:
		return fmt.Sprintf("%s %d %s %d %d %d", o.Verb, o.ID, o.Name, o.Stock, o.Day, o.Demand)
	case VerbRestock:
		return fmt.Sprintf("%s %d %d", o.Verb, o.ID, o.Amount)
	case VerbPurchase:
		return fmt.Sprintf("%s %d %d %d", o.Verb, o.ID, o.Day, o.Amount)
	default:
		return fmt.Sprintf("%s %d", o.Verb, o.ID)
	}
}

// Validate rejects operations that would leave a product with negative stock
// or demand. Every entry point that accepts operations applies the same rules.
func (o Op) Validate() error {
	switch o.Verb {
	case VerbAdd, VerbBetterAdd:
		if o.Stock < 0 {
			return errors.New("stock must not be negative")
		}
		if o.Demand < 0 {
			return errors.New("demand must not be negative")
		}
	case VerbRestock:
		if o.Amount < 0 {
			return errors.New("amount must not be negative")
		}
	case VerbPurchase:
		if o.Amount <= 0 {
			return errors.New("amount must be positive")
		}
	}
	return nil
}

// Target is the set of warehouse operations a script drives.
type Target interface {
	AddProduct(id int, name string, stock, day, demand int)
	BetterAddProduct(id int, name string, stock, day, demand int)
	RestockProduct(id, amount int)
	PurchaseProduct(id, day, amount int)
	DeleteProduct(id int)
}

var aliases = map[string]Verb{
	"add":              VerbAdd,
	"addproduct":       VerbAdd,
	"betteradd":        VerbBetterAdd,
	"betteraddproduct": VerbBetterAdd,
	"restock":          VerbRestock,
	"restockproduct":   VerbRestock,
	"purchase":         VerbPurchase,
	"purchaseproduct":  VerbPurchase,
	"delete":           VerbDelete,
	"deleteproduct":    VerbDelete,
}

// arity is the number of arguments after the verb.
var arity = map[Verb]int{
	VerbAdd:       5,
	VerbBetterAdd: 5,
	VerbRestock:   2,
	VerbPurchase:  3,
	VerbDelete:    1,
}

// Parse reads every operation from r. The first malformed or invalid line
// aborts parsing, as does a read error, and no operations are returned.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		op, err := parseLine(strings.Fields(text))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	return ops, nil
}

func parseLine(fields []string) (Op, error) {
	verb, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return Op{}, errors.Errorf("unknown operation %q", fields[0])
	}
	args := fields[1:]
	if want := arity[verb]; len(args) != want {
		return Op{}, errors.Errorf("%s takes %d arguments, got %d", verb, want, len(args))
	}

	op := Op{Verb: verb}
	// Every verb starts with the id; the name is the only non-numeric argument.
	ints := make([]int, 0, len(args))
	for i, raw := range args {
		if (verb == VerbAdd || verb == VerbBetterAdd) && i == 1 {
			op.Name = raw
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Op{}, errors.Errorf("argument %d of %s is not an integer: %q", i+1, verb, raw)
		}
		ints = append(ints, n)
	}

	op.ID = ints[0]
	switch verb {
	case VerbAdd, VerbBetterAdd:
		op.Stock, op.Day, op.Demand = ints[1], ints[2], ints[3]
	case VerbRestock:
		op.Amount = ints[1]
	case VerbPurchase:
		op.Day, op.Amount = ints[1], ints[2]
	}
	if err := op.Validate(); err != nil {
		return Op{}, errors.Wrap(err, string(verb))
	}
	return op, nil
}

// Apply runs ops against t in order.
func Apply(t Target, ops []Op) {
	for _, op := range ops {
		switch op.Verb {
		case VerbAdd:
			t.AddProduct(op.ID, op.Name, op.Stock, op.Day, op.Demand)
		case VerbBetterAdd:
			t.BetterAddProduct(op.ID, op.Name, op.Stock, op.Day, op.Demand)
		case VerbRestock:
			t.RestockProduct(op.ID, op.Amount)
		case VerbPurchase:
			t.PurchaseProduct(op.ID, op.Day, op.Amount)
		case VerbDelete:
			t.DeleteProduct(op.ID)
		}
	}
}

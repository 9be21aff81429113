// Package dice implements the random draws and "NdM" roll expressions used at the table.
package dice

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidExpression indicates a roll expression is not of the form NdM
// with M one of 4, 6, 8, 10, 12 or 20.
var ErrInvalidExpression = errors.New("invalid dice expression")

// MaxCount is the largest number of dice a single expression may roll.
const MaxCount = 100

// expressionPattern accepts one or more count digits, a literal "d" and an
// allowed number of sides, with nothing before or after.
var expressionPattern = regexp.MustCompile(`^(\d+)d(4|6|8|10|12|20)$`)

// Source produces uniform integers in [0, n). *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Expression is a parsed roll expression.
type Expression struct {
	Count int
	Sides int
}

// String renders the expression back as NdM.
func (e Expression) String() string {
	return fmt.Sprintf("%dd%d", e.Count, e.Sides)
}

// Roll is the outcome of rolling an expression.
type Roll struct {
	Expression Expression
	Results    []int
	Total      int
}

// Breakdown renders the individual results joined by " + ".
func (r Roll) Breakdown() string {
	parts := make([]string, len(r.Results))
	for i, v := range r.Results {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " + ")
}

// Parse validates and parses an NdM expression. The count must be between 1 and MaxCount.
func Parse(expr string) (Expression, error) {
	m := expressionPattern.FindStringSubmatch(expr)
	if m == nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count < 1 || count > MaxCount {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
	sides, _ := strconv.Atoi(m[2])
	return Expression{Count: count, Sides: sides}, nil
}

// Resolver draws dice from a Source. It is safe for concurrent use.
type Resolver struct {
	mu  sync.Mutex
	src Source
}

// NewResolver wraps src. Tests pass a scripted source to get fixed draws.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// NewSeededResolver returns a resolver whose draws are reproducible for a given seed.
func NewSeededResolver(seed int64) *Resolver {
	return NewResolver(mrand.New(mrand.NewSource(seed)))
}

// NewRandomResolver returns a resolver seeded from crypto/rand.
func NewRandomResolver() (*Resolver, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSeededResolver(seed), nil
}

// NewSeed returns a random seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63)), nil
}

// Die returns a uniform integer in [1, sides].
func (r *Resolver) Die(sides int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(sides) + 1
}

// D20 rolls a single twenty-sided die.
func (r *Resolver) D20() int {
	return r.Die(20)
}

// Roll rolls every die of e and sums them.
func (r *Resolver) Roll(e Expression) Roll {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Roll{Expression: e, Results: make([]int, e.Count)}
	for i := range out.Results {
		v := r.src.Intn(e.Sides) + 1
		out.Results[i] = v
		out.Total += v
	}
	return out
}

// RollExpression parses expr and rolls it.
func (r *Resolver) RollExpression(expr string) (Roll, error) {
	e, err := Parse(expr)
	if err != nil {
		return Roll{}, err
	}
	return r.Roll(e), nil
}

// Package navigation models the screen changes the client asks for.
package navigation

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	Home  = "/"
	Login = "/login"
	Cart  = "/cart"
)

// Navigator moves the user to another location.
type Navigator interface {
	Push(path string)
}

// Func adapts a function to Navigator.
type Func func(path string)

func (f Func) Push(path string) { f(path) }

// Recorder remembers every push. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *Recorder) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Last returns the latest pushed path, or "" if nothing was pushed.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}

// ProductPath is the detail location of a product; the detail screen renders from the
// query parameters alone.
func ProductPath(p domain.Product) string {
	q := url.Values{}
	q.Set("id", fmt.Sprint(p.ID))
	q.Set("name", p.Name)
	q.Set("description", p.Description)
	q.Set("price", p.Price.String())
	q.Set("image1", p.Image1)
	q.Set("image2", p.Image2)
	return fmt.Sprintf("/products/%d?%s", p.ID, q.Encode())
}

// ParseProductPath reverses ProductPath. Missing fields fall back to the same
// placeholders the detail screen shows.
func ParseProductPath(path string) (domain.Product, error) {
	u, err := url.Parse(path)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid product path: %w", err)
	}
	q := u.Query()
	var p domain.Product
	if _, err := fmt.Sscan(q.Get("id"), &p.ID); err != nil {
		return domain.Product{}, fmt.Errorf("invalid product id %q", q.Get("id"))
	}
	p.Name = valueOr(q.Get("name"), "Unknown Product")
	p.Description = valueOr(q.Get("description"), "No description available.")
	price, err := decimal.NewFromString(valueOr(q.Get("price"), "0"))
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price: %w", err)
	}
	p.Price = price
	p.Image1 = valueOr(q.Get("image1"), "/default.jpg")
	p.Image2 = q.Get("image2")
	return p, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

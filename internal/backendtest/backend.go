// Package backendtest is an in-memory storefront GraphQL backend. Tests run it on an
// httptest.Server; cmd/devbackend serves it for local runs of the shell.
package backendtest

import (
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
)

// Operation names, as the root field of the GraphQL document
const (
	OpProducts              = "products"
	OpCart                  = "cart"
	OpAddProductToCart      = "addProductToCart"
	OpUpdateCartProduct     = "updateCartProduct"
	OpDeleteProductFromCart = "deleteProductFromCart"
	OpPlaceOrder            = "placeOrder"
	OpNotifyOrder           = "notifyOrder"
	OpProfile               = "profile"
	OpEditProfile           = "editProfile"
	OpDeleteProfile         = "deleteProfile"
	OpOrders                = "orders"
	OpLogin                 = "login"
	OpRegister              = "register"
)

// FailMode selects how a failing operation answers.
type FailMode int

const (
	// FailServer answers 200 with a GraphQL "errors" array
	FailServer FailMode = iota + 1
	// FailTransport answers 502 with a non-JSON body
	FailTransport
)

// CSRFToken is the token the backend hands out in the csrftoken cookie.
const CSRFToken = "test-csrf-token"

type account struct {
	id       int64
	username string
	email    string
	password string
}

type cartLine struct {
	productID int64
	quantity  int
}

type order struct {
	id        int64
	userID    int64
	total     decimal.Decimal
	status    string
	createdAt string
	items     []domain.OrderItem
}

// Backend holds the whole fake store. All methods are safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	products    []domain.Product
	accounts    map[int64]*account
	profiles    map[int64]*domain.Profile
	carts       map[int64][]cartLine
	orders      []*order
	notified    []int64
	nextUserID  int64
	nextOrderID int64

	calls    map[string]int
	csrfSeen []string
	faults   map[string]FailMode
	holds    map[string]chan struct{}
}

func New() *Backend {
	return &Backend{
		accounts:    make(map[int64]*account),
		profiles:    make(map[int64]*domain.Profile),
		carts:       make(map[int64][]cartLine),
		nextUserID:  1,
		nextOrderID: 1,
		calls:       make(map[string]int),
		faults:      make(map[string]FailMode),
		holds:       make(map[string]chan struct{}),
	}
}

// Start serves the backend on an httptest.Server closed at test cleanup.
func Start(t testing.TB) (*Backend, *httptest.Server) {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *Backend) AddProduct(p domain.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = append(b.products, p)
}

// AddUser registers an account with an empty profile and returns its id.
func (b *Backend) AddUser(username, email, password string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email, password)
}

func (b *Backend) addUserLocked(username, email, password string) int64 {
	id := b.nextUserID
	b.nextUserID++
	b.accounts[id] = &account{id: id, username: username, email: email, password: password}
	b.profiles[id] = &domain.Profile{User: username, Email: email}
	return id
}

// PutInCart sets the quantity of a product in a user's cart, appending it if absent.
func (b *Backend) PutInCart(userID, productID int64, quantity int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].quantity = quantity
			return
		}
	}
	b.carts[userID] = append(lines, cartLine{productID: productID, quantity: quantity})
}

// CartQuantities returns productID -> quantity for a user's cart.
func (b *Backend) CartQuantities(userID int64) map[int64]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int64]int)
	for _, l := range b.carts[userID] {
		out[l.productID] = l.quantity
	}
	return out
}

func (b *Backend) Profile(userID int64) (domain.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[userID]
	if !ok {
		return domain.Profile{}, false
	}
	return *p, true
}

func (b *Backend) OrderCount(userID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.orders {
		if o.userID == userID {
			n++
		}
	}
	return n
}

// Notified lists the order ids notifyOrder succeeded for, in call order.
func (b *Backend) Notified() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int64(nil), b.notified...)
}

func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// CSRFSeen returns the X-CSRFToken header of every request, in arrival order.
func (b *Backend) CSRFSeen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.csrfSeen...)
}

// Fail makes op fail with mode until Heal is called.
func (b *Backend) Fail(op string, mode FailMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[op] = mode
}

func (b *Backend) Heal(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.faults, op)
}

// Hold parks every request for op until the returned release func is called.
func (b *Backend) Hold(op string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.holds[op] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.holds[op] == ch {
				delete(b.holds, op)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Backend) record(op, csrf string) (FailMode, chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
	b.csrfSeen = append(b.csrfSeen, csrf)
	return b.faults[op], b.holds[op]
}

func (b *Backend) productLocked(id int64) (domain.Product, error) {
	for _, p := range b.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, errProductNotFound
}

// Seed fills the backend with a small catalog and one shopper, "demo"/"demo".
func (b *Backend) Seed() {
	catalog := []domain.Product{
		{ID: 1, Name: "Classic Oxford Shirt", Description: "Cotton oxford shirt", Price: decimal.NewFromInt(1499), Category: domain.Category{Name: "Shirts"}, Gender: "Men", Image1: "/media/oxford-1.jpg", Image2: "/media/oxford-2.jpg"},
		{ID: 2, Name: "Linen Summer Dress", Description: "Breathable linen dress", Price: decimal.NewFromInt(2999), Category: domain.Category{Name: "Dresses"}, Gender: "Women", Image1: "/media/dress-1.jpg"},
		{ID: 3, Name: "Canvas Sneakers", Description: "Everyday sneakers", Price: decimal.NewFromInt(1999), Category: domain.Category{Name: "Footwear"}, Gender: "Unisex", Image1: "/media/sneakers-1.jpg"},
		{ID: 4, Name: "Wool Scarf", Description: "Merino wool scarf", Price: decimal.NewFromInt(799), Category: domain.Category{Name: "Accessories"}, Gender: "Unisex", Image1: "/media/scarf-1.jpg"},
		{ID: 5, Name: "Denim Jacket", Description: "Washed denim jacket", Price: decimal.NewFromInt(4599), Category: domain.Category{Name: "Jackets"}, Gender: "Men", Image1: "/media/denim-1.jpg"},
	}
	for _, p := range catalog {
		b.AddProduct(p)
	}
	id := b.AddUser("demo", "demo@example.com", "demo")
	b.PutInCart(id, 1, 1)
	b.PutInCart(id, 3, 2)
}

func sortedProducts(ps []domain.Product) []domain.Product {
	out := append([]domain.Product(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

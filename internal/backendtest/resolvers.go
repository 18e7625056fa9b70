package backendtest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

var (
	errProductNotFound = errors.New("Product matching query does not exist.")
	errUserNotFound    = errors.New("User matching query does not exist.")
	errCartItemMissing = errors.New("CartItem matching query does not exist.")
	errEmptyCart       = errors.New("Cart is empty. Add products before placing an order.")
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var signingKey = []byte("backendtest-signing-key")

type vars map[string]any

func (v vars) num(name string) int64 {
	switch n := v[name].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func (v vars) text(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

func productJSON(p domain.Product) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price.InexactFloat64(),
		"category":    map[string]any{"name": p.Category.Name},
		"gender":      p.Gender,
		"image1":      p.Image1,
		"image2":      p.Image2,
	}
}

func profileJSON(p *domain.Profile) map[string]any {
	return map[string]any{
		"user":        p.User,
		"address":     p.Address,
		"firstName":   p.FirstName,
		"lastName":    p.LastName,
		"phoneNumber": p.PhoneNumber,
		"email":       p.Email,
		"image":       p.Image,
	}
}

func (b *Backend) resolve(op string, v vars) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch op {
	case OpProducts:
		out := make([]map[string]any, 0, len(b.products))
		for _, p := range sortedProducts(b.products) {
			out = append(out, productJSON(p))
		}
		return out, nil
	case OpCart:
		userID := v.num("userId")
		if _, ok := b.carts[userID]; !ok {
			return nil, nil
		}
		return b.cartJSONLocked(userID)
	case OpAddProductToCart:
		return b.addToCartLocked(v.num("userId"), v.num("productId"), int(v.num("quantity")))
	case OpUpdateCartProduct:
		return b.updateCartLocked(v.num("userId"), v.num("productId"), int(v.num("quantity")))
	case OpDeleteProductFromCart:
		return b.updateCartLocked(v.num("userId"), v.num("productId"), 0)
	case OpPlaceOrder:
		return b.placeOrderLocked(v.num("userId"))
	case OpNotifyOrder:
		return b.notifyLocked(v.num("orderId")), nil
	case OpProfile:
		p, ok := b.profiles[v.num("userId")]
		if !ok {
			return nil, nil
		}
		return profileJSON(p), nil
	case OpEditProfile:
		return b.editProfileLocked(v)
	case OpDeleteProfile:
		return b.deleteProfileLocked(v.num("userId")), nil
	case OpOrders:
		return b.ordersLocked(v.num("userId")), nil
	case OpLogin:
		return b.loginLocked(v)
	case OpRegister:
		return b.registerLocked(v)
	}
	return nil, fmt.Errorf("Cannot query field '%s'.", op)
}

func (b *Backend) cartJSONLocked(userID int64) (any, error) {
	acc, ok := b.accounts[userID]
	if !ok {
		return nil, errUserNotFound
	}
	items := make([]map[string]any, 0, len(b.carts[userID]))
	for _, l := range b.carts[userID] {
		p, err := b.productLocked(l.productID)
		if err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"product":  productJSON(p),
			"quantity": l.quantity,
			"subtotal": p.Price.Mul(decimal.NewFromInt(int64(l.quantity))).InexactFloat64(),
		})
	}
	return map[string]any{"id": userID, "user": acc.username, "items": items}, nil
}

func (b *Backend) addToCartLocked(userID, productID int64, quantity int) (any, error) {
	if _, ok := b.accounts[userID]; !ok {
		return nil, errUserNotFound
	}
	if _, err := b.productLocked(productID); err != nil {
		return nil, err
	}
	lines := b.carts[userID]
	found := false
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].quantity += quantity
			found = true
		}
	}
	if !found {
		lines = append(lines, cartLine{productID: productID, quantity: quantity})
	}
	b.carts[userID] = lines
	return b.cartJSONLocked(userID)
}

// updateCartLocked sets the quantity; zero or less removes the line.
func (b *Backend) updateCartLocked(userID, productID int64, quantity int) (any, error) {
	if _, ok := b.accounts[userID]; !ok {
		return nil, errUserNotFound
	}
	lines := b.carts[userID]
	idx := -1
	for i := range lines {
		if lines[i].productID == productID {
			idx = i
		}
	}
	if idx < 0 {
		return nil, errCartItemMissing
	}
	if quantity > 0 {
		lines[idx].quantity = quantity
	} else {
		lines = append(lines[:idx], lines[idx+1:]...)
	}
	b.carts[userID] = lines
	return b.cartJSONLocked(userID)
}

func (b *Backend) placeOrderLocked(userID int64) (any, error) {
	acc, ok := b.accounts[userID]
	if !ok {
		return nil, errUserNotFound
	}
	if _, ok := b.profiles[userID]; !ok {
		return nil, errors.New("Profile does not exist for this user.")
	}
	lines := b.carts[userID]
	if len(lines) == 0 {
		return nil, errEmptyCart
	}

	o := &order{
		id:        b.nextOrderID,
		userID:    userID,
		status:    "Pending",
		createdAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b.nextOrderID++
	for i, l := range lines {
		p, err := b.productLocked(l.productID)
		if err != nil {
			return nil, err
		}
		o.total = o.total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
		o.items = append(o.items, domain.OrderItem{ID: int64(i + 1), Product: p, Quantity: l.quantity, Price: p.Price})
	}
	b.orders = append(b.orders, o)
	b.carts[userID] = nil

	return map[string]any{
		"id":         o.id,
		"user":       acc.username,
		"totalPrice": o.total.InexactFloat64(),
		"status":     o.status,
	}, nil
}

func (b *Backend) notifyLocked(orderID int64) string {
	for _, o := range b.orders {
		if o.id == orderID {
			b.notified = append(b.notified, orderID)
			return "Email sent successfully"
		}
	}
	return "Order not found"
}

func (b *Backend) editProfileLocked(v vars) (any, error) {
	userID := v.num("userId")
	p, ok := b.profiles[userID]
	if !ok {
		return nil, errors.New("Profile does not exist for this user.")
	}
	if s, ok := v.text("username"); ok {
		b.accounts[userID].username = s
		p.User = s
	}
	if s, ok := v.text("address"); ok {
		p.Address = s
	}
	if s, ok := v.text("firstName"); ok {
		p.FirstName = s
	}
	if s, ok := v.text("lastName"); ok {
		p.LastName = s
	}
	if s, ok := v.text("phoneNumber"); ok {
		p.PhoneNumber = s
	}
	if s, ok := v.text("image"); ok && strings.HasPrefix(s, "data:image") {
		p.Image = "profileimage/upload"
	}
	return profileJSON(p), nil
}

func (b *Backend) deleteProfileLocked(userID int64) any {
	if _, ok := b.profiles[userID]; !ok {
		return map[string]any{"success": false, "message": "Profile not found."}
	}
	delete(b.profiles, userID)
	delete(b.accounts, userID)
	delete(b.carts, userID)
	return map[string]any{"success": true, "message": "Profile and user deleted successfully."}
}

func (b *Backend) ordersLocked(userID int64) any {
	out := []map[string]any{}
	for _, o := range b.orders {
		if o.userID != userID {
			continue
		}
		items := make([]map[string]any, 0, len(o.items))
		for _, it := range o.items {
			items = append(items, map[string]any{
				"id":       it.ID,
				"product":  productJSON(it.Product),
				"quantity": it.Quantity,
				"price":    it.Price.InexactFloat64(),
			})
		}
		username := ""
		if acc, ok := b.accounts[userID]; ok {
			username = acc.username
		}
		out = append(out, map[string]any{
			"id":         o.id,
			"user":       username,
			"createdAt":  o.createdAt,
			"orderItems": items,
		})
	}
	return out
}

func (b *Backend) loginLocked(v vars) (any, error) {
	username, _ := v.text("username")
	password, _ := v.text("password")
	for _, acc := range b.accounts {
		if acc.username == username && acc.password == password {
			access, refresh, err := issueTokens(acc, time.Now())
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"accessToken":  access,
				"refreshToken": refresh,
				"user": map[string]any{
					"id":       acc.id,
					"username": acc.username,
					"email":    acc.email,
				},
			}, nil
		}
	}
	return nil, errors.New("Invalid username or password")
}

// issueTokens signs a short-lived access token and a week-long refresh token for acc.
func issueTokens(acc *account, now time.Time) (string, string, error) {
	sign := func(ttl time.Duration) (string, error) {
		return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":      strconv.FormatInt(acc.id, 10),
			"username": acc.username,
			"iat":      now.Unix(),
			"exp":      now.Add(ttl).Unix(),
		}).SignedString(signingKey)
	}
	access, err := sign(AccessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := sign(RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (b *Backend) registerLocked(v vars) (any, error) {
	username, _ := v.text("username")
	email, _ := v.text("email")
	password, _ := v.text("password")
	if username == "" || password == "" {
		return nil, errors.New("Username and password are required")
	}
	for _, acc := range b.accounts {
		if acc.username == username {
			return nil, errors.New("Username already exists")
		}
	}
	id := b.addUserLocked(username, email, password)
	return map[string]any{"id": id}, nil
}

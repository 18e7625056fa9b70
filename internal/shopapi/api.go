// Package shopapi maps the storefront GraphQL operations onto typed Go calls.
package shopapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/graphql"
)

var ErrProfileNotFound = errors.New("profile not found")

// API issues one GraphQL call per method. Login goes to the auth endpoint, everything
// else to the main one.
type API struct {
	exec graphql.Executor
	auth graphql.Executor
}

func New(exec, auth graphql.Executor) *API {
	if auth == nil {
		auth = exec
	}
	return &API{exec: exec, auth: auth}
}

func (a *API) Products(ctx context.Context) ([]domain.Product, error) {
	var out struct {
		Products []domain.Product `json:"products"`
	}
	if err := a.exec.Execute(ctx, graphql.Request{Query: productsQuery}, &out); err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	return out.Products, nil
}

// Cart returns the user's line items. A user without a cart has an empty one.
// Subtotals are recomputed locally so they always equal price * quantity.
func (a *API) Cart(ctx context.Context, userID int64) ([]domain.LineItem, error) {
	var out struct {
		Cart *struct {
			Items []domain.LineItem `json:"items"`
		} `json:"cart"`
	}
	req := graphql.Request{Query: cartQuery, Variables: map[string]any{"userId": userID}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("cart: %w", err)
	}
	if out.Cart == nil {
		return []domain.LineItem{}, nil
	}
	items := make([]domain.LineItem, len(out.Cart.Items))
	for i, it := range out.Cart.Items {
		items[i] = domain.NewLineItem(it.Product, it.Quantity)
	}
	return items, nil
}

func (a *API) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	req := graphql.Request{Query: addToCartMutation, Variables: map[string]any{
		"userId":    userID,
		"productId": productID,
		"quantity":  quantity,
	}}
	if err := a.exec.Execute(ctx, req, nil); err != nil {
		return fmt.Errorf("addProductToCart: %w", err)
	}
	return nil
}

func (a *API) UpdateCartProduct(ctx context.Context, userID, productID int64, quantity int) error {
	req := graphql.Request{Query: updateCartProductMutation, Variables: map[string]any{
		"userId":    userID,
		"productId": productID,
		"quantity":  quantity,
	}}
	if err := a.exec.Execute(ctx, req, nil); err != nil {
		return fmt.Errorf("updateCartProduct: %w", err)
	}
	return nil
}

func (a *API) DeleteProductFromCart(ctx context.Context, userID, productID int64) error {
	req := graphql.Request{Query: deleteProductMutation, Variables: map[string]any{
		"userId":    userID,
		"productId": productID,
	}}
	if err := a.exec.Execute(ctx, req, nil); err != nil {
		return fmt.Errorf("deleteProductFromCart: %w", err)
	}
	return nil
}

func (a *API) PlaceOrder(ctx context.Context, userID int64) (*domain.Order, error) {
	var out struct {
		PlaceOrder *domain.Order `json:"placeOrder"`
	}
	req := graphql.Request{Query: placeOrderMutation, Variables: map[string]any{"userId": userID}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("placeOrder: %w", err)
	}
	if out.PlaceOrder == nil {
		return nil, fmt.Errorf("placeOrder: %w: empty result", graphql.ErrTransport)
	}
	return out.PlaceOrder, nil
}

// NotifyOrder asks the backend to send the order confirmation. The backend answers
// with a status line rather than an error for unknown orders.
func (a *API) NotifyOrder(ctx context.Context, orderID int64) (string, error) {
	var out struct {
		NotifyOrder string `json:"notifyOrder"`
	}
	req := graphql.Request{Query: notifyOrderMutation, Variables: map[string]any{"orderId": orderID}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return "", fmt.Errorf("notifyOrder: %w", err)
	}
	return out.NotifyOrder, nil
}

func (a *API) Profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var out struct {
		Profile *domain.Profile `json:"profile"`
	}
	req := graphql.Request{Query: profileQuery, Variables: map[string]any{"userId": userID}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if out.Profile == nil {
		return nil, ErrProfileNotFound
	}
	return out.Profile, nil
}

// ProfileUpdate is the editable part of a profile. Image is sent only when set and is
// expected as a data URL.
type ProfileUpdate struct {
	Username    string
	Address     string
	FirstName   string
	LastName    string
	PhoneNumber string
	Image       string
}

func (a *API) EditProfile(ctx context.Context, userID int64, u ProfileUpdate) (*domain.Profile, error) {
	vars := map[string]any{
		"userId":      userID,
		"username":    u.Username,
		"address":     u.Address,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"phoneNumber": u.PhoneNumber,
	}
	if u.Image != "" {
		vars["image"] = u.Image
	}
	var out struct {
		EditProfile *domain.Profile `json:"editProfile"`
	}
	if err := a.exec.Execute(ctx, graphql.Request{Query: editProfileMutation, Variables: vars}, &out); err != nil {
		return nil, fmt.Errorf("editProfile: %w", err)
	}
	if out.EditProfile == nil {
		return nil, ErrProfileNotFound
	}
	return out.EditProfile, nil
}

type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *API) DeleteProfile(ctx context.Context, userID int64) (DeleteResult, error) {
	var out struct {
		DeleteProfile DeleteResult `json:"deleteProfile"`
	}
	req := graphql.Request{Query: deleteProfileMutation, Variables: map[string]any{"userId": userID}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return DeleteResult{}, fmt.Errorf("deleteProfile: %w", err)
	}
	return out.DeleteProfile, nil
}

func (a *API) Orders(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	var out struct {
		Orders []domain.OrderSummary `json:"orders"`
	}
	req := graphql.Request{Query: ordersQuery, Variables: map[string]any{"userId": userID}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	return out.Orders, nil
}

// LoginResult is the login payload. Any field may be missing in a malformed answer.
type LoginResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *domain.User `json:"user"`
}

func (a *API) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out struct {
		Login *LoginResult `json:"login"`
	}
	req := graphql.Request{Query: loginMutation, Variables: map[string]any{
		"username": username,
		"password": password,
	}}
	if err := a.auth.Execute(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if out.Login == nil {
		return &LoginResult{}, nil
	}
	return out.Login, nil
}

func (a *API) Register(ctx context.Context, username, email, password string) (int64, error) {
	var out struct {
		Register *struct {
			ID int64 `json:"id"`
		} `json:"register"`
	}
	req := graphql.Request{Query: registerMutation, Variables: map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	}}
	if err := a.exec.Execute(ctx, req, &out); err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}
	if out.Register == nil {
		return 0, nil
	}
	return out.Register.ID, nil
}

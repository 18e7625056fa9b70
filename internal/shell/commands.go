package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/cart"
	"github.com/aminexfrad/F-S-SHOP/internal/catalog"
	"github.com/aminexfrad/F-S-SHOP/internal/checkout"
	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/navigation"
	"github.com/aminexfrad/F-S-SHOP/internal/profile"
	"github.com/aminexfrad/F-S-SHOP/internal/session"
	"github.com/aminexfrad/F-S-SHOP/internal/shopapi"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// rootCommand is the command tree of one shell line. Leaves take positional arguments
// only, so "qty 1 -1" is not read as a flag.
func (s *Shell) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Browse the shop, manage your cart and place orders",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(outWriter{s})
	root.SetErr(outWriter{s})

	outbox := leaf("outbox [flush]", "Show or deliver queued order notifications",
		cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs), s.outboxCmd)
	outbox.ValidArgs = []string{"flush"}

	root.AddCommand(
		leaf("quit", "Leave the shell", cobra.NoArgs, func(context.Context, []string) error { return ErrQuit }),
		leaf("products", "List products matching the filter", cobra.NoArgs, s.products),
		leaf("filter [category|gender <name> | min|max <price> | reset]", "Show or change the product filter",
			cobra.RangeArgs(0, 2), s.filterCmd),
		leaf("product <id>", "Show one product", cobra.ExactArgs(1), s.product),
		leaf("add <id> [quantity]", "Add a product to the cart", cobra.RangeArgs(1, 2), s.add),
		leaf("cart", "Show the cart and its totals", cobra.NoArgs, s.showCart),
		leaf("qty <row> <+n|-n>", "Change the quantity of a cart row", cobra.ExactArgs(2), s.qty),
		leaf("remove <row>", "Remove a cart row", cobra.ExactArgs(1), s.remove),
		leaf("donate <10|20|50|100>", "Toggle a donation", cobra.ExactArgs(1), s.donate),
		leaf("checkout", "Place an order for the cart", cobra.NoArgs, s.checkout),
		leaf("login <username> <password>", "Sign in", cobra.ExactArgs(2), s.login),
		leaf("register <username> <email> <password>", "Create an account", cobra.ExactArgs(3), s.registerCmd),
		leaf("logout", "Sign out", cobra.NoArgs, s.logout),
		leaf("whoami", "Show the signed-in user", cobra.NoArgs, s.whoami),
		leaf("profile", "Show your profile", cobra.NoArgs, s.showProfile),
		leaf("profile-save key=value...", "Update username, first, last, address, phone, image",
			cobra.ArbitraryArgs, s.saveProfile),
		leaf("orders", "Show your order history", cobra.NoArgs, s.orders),
		leaf("delete-account <DELETE>", "Delete your account", cobra.MaximumNArgs(1), s.deleteAccount),
		outbox,
	)
	return root
}

func leaf(use, short string, args cobra.PositionalArgs, run func(ctx context.Context, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		DisableFlagParsing: true,
		Args: func(cmd *cobra.Command, a []string) error {
			if err := args(cmd, a); err != nil {
				return usage(cmd.Use, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, a []string) error {
			return run(cmd.Context(), a)
		},
	}
}

func usage(use string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUsage, use, err)
}

func (s *Shell) products(ctx context.Context, _ []string) error {
	all, err := s.deps.Catalog.Products(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	f := s.filter
	s.mu.Unlock()

	shown := f.Apply(all)
	if len(shown) == 0 {
		s.printf("no products match the filter\n")
		return nil
	}
	for _, p := range shown {
		s.printf("  #%-4d %-28s %10s  %s / %s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Category.Name, p.Gender)
	}
	return nil
}

func (s *Shell) filterCmd(ctx context.Context, args []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case len(args) == 0:
	case args[0] == "reset" && len(args) == 1:
		s.filter.Reset()
	case args[0] == "category" && len(args) == 2:
		s.filter.ToggleCategory(args[1])
	case args[0] == "gender" && len(args) == 2:
		s.filter.ToggleGender(args[1])
	case (args[0] == "min" || args[0] == "max") && len(args) == 2:
		v, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid price %q", args[1])
		}
		if args[0] == "min" {
			s.filter.SetMin(v)
		} else {
			s.filter.SetMax(v)
		}
	default:
		return usage("filter [category|gender <name> | min|max <price> | reset]", errors.New("unknown filter"))
	}
	f := s.filter
	s.printf("categories: %s\ngenders: %s\nprice: %s - %s\n",
		listOrAny(f.Categories), listOrAny(f.Genders), f.MinPrice.String(), f.MaxPrice.String())
	return nil
}

func listOrAny(v []string) string {
	if len(v) == 0 {
		return "any"
	}
	return strings.Join(v, ", ")
}

func (s *Shell) lookup(ctx context.Context, raw string) (domain.Product, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid product id %q", raw)
	}
	all, err := s.deps.Catalog.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	p, ok := catalog.Find(all, id)
	if !ok {
		return domain.Product{}, fmt.Errorf("no product #%d", id)
	}
	return p, nil
}

func (s *Shell) product(ctx context.Context, args []string) error {
	p, err := s.lookup(ctx, args[0])
	if err != nil {
		return err
	}
	s.deps.Nav.Push(navigation.ProductPath(p))
	s.printf("%s\n  %s\n  price: %s\n  category: %s / %s\n", p.Name, p.Description, p.Price.StringFixed(2), p.Category.Name, p.Gender)
	if origin := s.origin(); origin != "" {
		for _, img := range []string{p.Image1, p.Image2} {
			if img != "" {
				s.printf("  image: %s\n", profile.ImageURL(origin, img))
			}
		}
	}
	return nil
}

// origin is the backend base URL that media paths are relative to.
func (s *Shell) origin() string {
	return s.deps.MediaOrigin
}

func (s *Shell) add(ctx context.Context, args []string) error {
	p, err := s.lookup(ctx, args[0])
	if err != nil {
		return err
	}
	quantity := 1
	if len(args) == 2 {
		if quantity, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
	}
	if err := s.deps.Detail.AddToCart(ctx, p, quantity); err != nil {
		return nil // shown as a notice
	}

	s.mu.Lock()
	vm := s.vm
	s.mu.Unlock()
	if vm != nil {
		return vm.Load(ctx)
	}
	return nil
}

// cartView returns the cart of the signed-in user, opening a fresh view when the user
// changed since the last call.
func (s *Shell) cartView(ctx context.Context) (*cart.ViewModel, *checkout.Flow, error) {
	user, err := s.deps.Session.RequireUser()
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	s.mu.Lock()
	if s.vm != nil && s.vm.UserID() == user.ID {
		vm, flow := s.vm, s.flow
		s.mu.Unlock()
		return vm, flow, nil
	}
	s.dropCartLocked()
	vm := cart.NewViewModel(s.deps.API, user.ID, s.deps.Notices, s.deps.Logger)
	flow := checkout.NewFlow(s.deps.API, vm, s.deps.Notices, s.flowOptions()...)
	s.vm, s.flow = vm, flow
	s.mu.Unlock()

	if err := vm.Load(ctx); err != nil {
		// an unloaded view would pass for an empty cart
		s.mu.Lock()
		if s.vm == vm {
			s.dropCartLocked()
		}
		s.mu.Unlock()
		return nil, nil, err
	}
	return vm, flow, nil
}

func (s *Shell) flowOptions() []checkout.Option {
	opts := []checkout.Option{checkout.WithLogger(s.deps.Logger), checkout.WithNotifyPolicy(s.deps.Policy)}
	if s.deps.Outbox != nil {
		opts = append(opts, checkout.WithOutbox(s.deps.Outbox))
	}
	return opts
}

func (s *Shell) dropCartLocked() {
	if s.vm != nil {
		s.vm.Close()
	}
	s.vm, s.flow = nil, nil
}

func (s *Shell) showCart(ctx context.Context, _ []string) error {
	vm, _, err := s.cartView(ctx)
	if err != nil {
		return err
	}
	if err := vm.Load(ctx); err != nil {
		return err
	}
	s.printCart(vm)
	return nil
}

func (s *Shell) printCart(vm *cart.ViewModel) {
	items := vm.Items()
	if len(items) == 0 {
		s.printf("your cart is empty\n")
		return
	}
	for i, it := range items {
		s.printf("  %d. %-28s %3d x %10s = %10s\n", i+1, it.Product.Name, it.Quantity,
			it.Product.Price.StringFixed(2), it.Subtotal.StringFixed(2))
	}
	t := vm.Totals()
	s.printf("  total MRP:    %10s\n  platform fee: %10s\n  shipping:     %10s\n  donation:     %10s\n  total:        %10s\n",
		t.TotalMRP.StringFixed(2), t.PlatformFee.StringFixed(2), shipping(t.Shipping),
		t.Donation.StringFixed(2), t.Total.StringFixed(2))
}

func shipping(d decimal.Decimal) string {
	if d.IsZero() {
		return "FREE"
	}
	return d.StringFixed(2)
}

// row parses a 1-based cart row.
func row(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid row %q", raw)
	}
	return n - 1, nil
}

func (s *Shell) qty(ctx context.Context, args []string) error {
	index, err := row(args[0])
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity change %q", args[1])
	}
	vm, _, err := s.cartView(ctx)
	if err != nil {
		return err
	}
	if err := vm.ChangeQuantity(ctx, index, delta); err != nil {
		return err
	}
	s.printCart(vm)
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	index, err := row(args[0])
	if err != nil {
		return err
	}
	vm, _, err := s.cartView(ctx)
	if err != nil {
		return err
	}
	if err := vm.RemoveItem(ctx, index); err != nil {
		return err
	}
	s.printCart(vm)
	return nil
}

func (s *Shell) donate(ctx context.Context, args []string) error {
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[0])
	}
	vm, _, err := s.cartView(ctx)
	if err != nil {
		return err
	}
	if err := vm.ToggleDonation(amount); err != nil {
		return err
	}
	s.printf("donation: %d\n", vm.Donation())
	return nil
}

func (s *Shell) checkout(ctx context.Context, _ []string) error {
	_, flow, err := s.cartView(ctx)
	if err != nil {
		return err
	}
	// failures are shown as notices
	_, _ = flow.PlaceOrder(ctx)
	return nil
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if s.deps.Auth.RedirectIfAuthenticated() {
		s.printf("already signed in as %s\n", s.deps.Session.Current().User.Username)
		return nil
	}
	return s.deps.Auth.Login(ctx, args[0], args[1])
}

func (s *Shell) registerCmd(ctx context.Context, args []string) error {
	_, err := s.deps.Auth.Register(ctx, args[0], args[1], args[2])
	return err
}

func (s *Shell) logout(ctx context.Context, _ []string) error {
	s.Close()
	return s.deps.Session.Logout(ctx)
}

func (s *Shell) whoami(context.Context, []string) error {
	snap := s.deps.Session.Current()
	if !snap.IsAuthenticated() {
		s.printf("%s\n", snap.State)
		return nil
	}
	s.printf("%s (#%d) %s\n", snap.User.Username, snap.User.ID, snap.User.Email)
	if exp, ok := session.TokenExpiry(snap.AccessToken); ok {
		s.printf("access token expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func (s *Shell) showProfile(ctx context.Context, _ []string) error {
	p, err := s.deps.Profile.Load(ctx)
	if err != nil {
		return err
	}
	s.printf("%s (%s)\n  email: %s\n  phone: %s\n  address: %s\n", profile.DisplayName(p), p.User, p.Email, p.PhoneNumber, p.Address)
	if p.Image != "" {
		s.printf("  image: %s\n", profile.ImageURL(s.origin(), p.Image))
	}
	return nil
}

var profileFields = map[string]func(*shopapi.ProfileUpdate, string){
	"username": func(u *shopapi.ProfileUpdate, v string) { u.Username = v },
	"first":    func(u *shopapi.ProfileUpdate, v string) { u.FirstName = v },
	"last":     func(u *shopapi.ProfileUpdate, v string) { u.LastName = v },
	"address":  func(u *shopapi.ProfileUpdate, v string) { u.Address = v },
	"phone":    func(u *shopapi.ProfileUpdate, v string) { u.PhoneNumber = v },
	"image":    func(u *shopapi.ProfileUpdate, v string) { u.Image = v },
}

func (s *Shell) saveProfile(ctx context.Context, args []string) error {
	for _, arg := range args {
		key, _, ok := strings.Cut(arg, "=")
		if !ok {
			return usage("profile-save key=value...", fmt.Errorf("%q is not key=value", arg))
		}
		if _, known := profileFields[key]; !known {
			return fmt.Errorf("unknown profile field %q", key)
		}
	}

	current, err := s.deps.Profile.Load(ctx)
	if err != nil {
		return err
	}
	u := shopapi.ProfileUpdate{
		Username:    current.User,
		Address:     current.Address,
		FirstName:   current.FirstName,
		LastName:    current.LastName,
		PhoneNumber: current.PhoneNumber,
	}
	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		profileFields[key](&u, value)
	}
	_, err = s.deps.Profile.Save(ctx, u)
	return err
}

func (s *Shell) orders(ctx context.Context, _ []string) error {
	orders, err := s.deps.Profile.Orders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		s.printf("no orders yet\n")
		return nil
	}
	for _, o := range orders {
		s.printf("order #%d  %s\n", o.ID, domain.FormatOrderDate(o.CreatedAt))
		for _, it := range o.OrderItems {
			s.printf("    %-28s %3d x %10s\n", it.Product.Name, it.Quantity, it.Price.StringFixed(2))
		}
	}
	return nil
}

func (s *Shell) deleteAccount(ctx context.Context, args []string) error {
	confirmation := ""
	if len(args) > 0 {
		confirmation = args[0]
	}
	if err := s.deps.Profile.DeleteAccount(ctx, confirmation); err != nil {
		return err
	}
	s.Close()
	return nil
}

func (s *Shell) outboxCmd(ctx context.Context, args []string) error {
	if s.deps.Outbox == nil {
		s.printf("notify policy is %s, no outbox\n", s.deps.Policy)
		return nil
	}
	if len(args) == 1 && s.deps.Flusher != nil {
		s.printf("delivered %d\n", s.deps.Flusher.ProcessOnce(ctx))
	}
	n, err := s.deps.Outbox.PendingCount(ctx)
	if err != nil {
		return err
	}
	s.printf("pending: %d\n", n)
	return nil
}

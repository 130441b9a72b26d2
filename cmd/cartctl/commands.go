package main

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/oolio-kart-cart/internal/app"
	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
	"github.com/xenking/oolio-kart-cart/pkg/health"
)

// state is what most commands print after they run.
type state struct {
	Items         []cart.Item         `json:"items"`
	Wishlist      []cart.WishlistItem `json:"wishlistItems"`
	Promo         *promo.Code         `json:"promoCode"`
	ItemCount     int                 `json:"itemCount"`
	WishlistCount int                 `json:"wishlistCount"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Error         string              `json:"error,omitempty"`
}

type cli struct {
	lg         *zap.Logger
	telemetry  app.Telemetry
	out        io.Writer
	configFile string
}

func newRootCommand(lg *zap.Logger, m app.Telemetry, out io.Writer) *cobra.Command {
	c := &cli{lg: lg, telemetry: m, out: out}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Cart, wishlist and promo code client for the storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Extra YAML config file")

	root.AddCommand(
		c.cartCommand(),
		c.addCommand(),
		c.updateCommand(),
		c.removeCommand(),
		c.saveForLaterCommand(),
		c.wishlistCommand(),
		c.moveToCartCommand(),
		c.promoCommand(),
		c.totalsCommand(),
		c.syncCommand(),
		c.logoutCommand(),
		c.statusCommand(),
	)
	return root
}

// run builds the app, calls fn and prints its result as JSON.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
	ctx := zctx.Base(cmd.Context(), c.lg)
	cfg, err := app.LoadConfig(c.configFile)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, c.lg, c.telemetry, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return c.print(out)
}

// mutate runs op and prints the resulting cache.
func (c *cli) mutate(cmd *cobra.Command, op func(ctx context.Context, a *app.App) error) error {
	return c.run(cmd, func(ctx context.Context, a *app.App) (any, error) {
		if err := op(ctx, a); err != nil {
			return nil, err
		}
		return snapshotState(a), nil
	})
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

func snapshotState(a *app.App) state {
	s := a.Store
	st := state{
		Items:         s.Items(),
		Wishlist:      s.Wishlist(),
		Promo:         s.Promo(),
		ItemCount:     s.ItemCount(),
		WishlistCount: s.WishlistCount(),
		Subtotal:      s.Subtotal().Round(2),
	}
	if st.Items == nil {
		st.Items = []cart.Item{}
	}
	if st.Wishlist == nil {
		st.Wishlist = []cart.WishlistItem{}
	}
	if err := s.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse quantity %q", s)
	}
	if n < 1 || n > cart.MaxQuantity {
		return 0, errors.Errorf("quantity must be between 1 and %d", cart.MaxQuantity)
	}
	return n, nil
}

func (c *cli) cartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Fetch the cart and wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Store.FetchCart(ctx); err != nil {
					return err
				}
				return a.Store.FetchWishlist(ctx)
			})
		},
	}
}

func (c *cli) addCommand() *cobra.Command {
	var (
		qty     int
		variant string
	)
	cmd := &cobra.Command{
		Use:   "add <productId>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseQuantity(strconv.Itoa(qty)); err != nil {
				return err
			}
			var variantID *cart.ID
			if variant != "" {
				variantID = cart.ID(variant).Ptr()
			}
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.AddToCart(ctx, cart.ID(args[0]), qty, variantID)
			})
		},
	}
	cmd.Flags().IntVar(&qty, "qty", 1, "Quantity to add")
	cmd.Flags().StringVar(&variant, "variant", "", "Variant id")
	return cmd
}

func (c *cli) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <itemId> <qty>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.UpdateQuantity(ctx, cart.ID(args[0]), qty)
			})
		},
	}
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemId>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.RemoveFromCart(ctx, cart.ID(args[0]))
			})
		},
	}
}

func (c *cli) saveForLaterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save-for-later <itemId>",
		Short: "Move a cart line to the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.SaveForLater(ctx, cart.ID(args[0]))
			})
		},
	}
}

func (c *cli) wishlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Fetch the wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.FetchWishlist(ctx)
			})
		},
	}
	cmd.AddCommand(
		c.sharedWishlistCommand(),
		&cobra.Command{
			Use:   "add <productId>",
			Short: "Save a product to the wishlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
					return a.Store.AddToWishlist(ctx, cart.ID(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "remove <productId>",
			Short: "Remove a product from the wishlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
					return a.Store.RemoveFromWishlist(ctx, cart.ID(args[0]))
				})
			},
		},
	)
	return cmd
}

type sharedWishlist struct {
	Wishlist []cart.WishlistItem `json:"wishlist"`
	Count    int                 `json:"count"`
}

// sharedWishlistCommand reads another shopper's wishlist. The local cache is
// left untouched.
func (c *cli) sharedWishlistCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shared <userId>",
		Short: "Show another shopper's public wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				items, err := a.Client.GetSharedWishlist(ctx, cart.ID(args[0]))
				if err != nil {
					return nil, err
				}
				if items == nil {
					items = []cart.WishlistItem{}
				}
				return sharedWishlist{Wishlist: items, Count: len(items)}, nil
			})
		},
	}
}

func (c *cli) moveToCartCommand() *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "move-to-cart <productId>",
		Short: "Move a wishlist product into the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseQuantity(strconv.Itoa(qty)); err != nil {
				return err
			}
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.MoveToCart(ctx, cart.ID(args[0]), qty)
			})
		},
	}
	cmd.Flags().IntVar(&qty, "qty", 1, "Quantity to add")
	return cmd
}

func (c *cli) promoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promo",
		Short: "Apply or remove the promo code",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "apply <code>",
			Short: "Apply a promo code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
					return a.Store.ApplyPromoCode(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Remove the active promo code",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
					return a.Store.RemovePromoCode(ctx)
				})
			},
		},
	)
	return cmd
}

type totalsOutput struct {
	Local  cart.Totals  `json:"local"`
	Server *cart.Totals `json:"server"`
}

func (c *cli) totalsCommand() *cobra.Command {
	var (
		shipping string
		server   bool
	)
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Price the cached cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var policy cart.ShippingPolicy = cart.DefaultShipping
			if shipping != "" {
				method, err := cart.ParseShippingMethod(shipping)
				if err != nil {
					return err
				}
				policy = cart.Tiered{Method: method}
			}
			return c.run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				local, err := a.Store.LocalTotals(policy)
				if err != nil {
					return nil, err
				}
				out := totalsOutput{Local: local}
				if server {
					out.Server = a.Store.Totals(ctx)
				}
				return out, nil
			})
		},
	}
	cmd.Flags().StringVar(&shipping, "shipping", "", "Checkout shipping method: standard, express or overnight")
	cmd.Flags().BoolVar(&server, "server", false, "Also fetch server-computed totals")
	return cmd
}

func (c *cli) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge the cached cart into the server cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.Sync(ctx)
			})
		},
	}
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached cart and wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, func(ctx context.Context, a *app.App) error {
				a.Store.ClearCart(ctx)
				a.Store.ClearWishlist(ctx)
				a.Store.ClearError()
				return nil
			})
		},
	}
}

type statusOutput struct {
	health.Report
	Storage *app.StoredSummary `json:"storage"`
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check backend and storage reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report health.Report
			err := c.run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				report = a.Health.Run(ctx)
				out := statusOutput{Report: report}
				stored, err := a.Stored(ctx)
				if err != nil {
					report.Status = health.StatusUnhealthy
					report.Checks["snapshot"] = err.Error()
					out.Report = report
					return out, nil
				}
				out.Storage = stored
				return out, nil
			})
			if err != nil {
				return err
			}
			if !report.Healthy() {
				return errors.Errorf("unhealthy: %v", report.Failed())
			}
			return nil
		},
	}
}

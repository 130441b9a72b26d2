// Command cartctl inspects and edits a shopper's cart, wishlist and promo
// code against a storefront backend.
package main

import (
	"context"
	"os"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		root := newRootCommand(lg, m, os.Stdout)
		root.SetArgs(os.Args[1:])
		return root.ExecuteContext(ctx)
	})
}

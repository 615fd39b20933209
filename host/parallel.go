package host

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task runs against a client bound to its own enclave context.
type Task func(ctx context.Context, c *Client) error

// Parallel runs each task on its own context. The first error cancels the
// others' ctx and is returned once all have finished.
func (h *Host) Parallel(ctx context.Context, tasks ...Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			c, err := h.NewClient()
			if err != nil {
				return err
			}
			defer c.Close()
			return task(gctx, c)
		})
	}
	return g.Wait()
}

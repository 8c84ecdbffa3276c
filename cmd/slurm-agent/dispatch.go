package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charmed-hpc/slurm-agent/internal/hooks"
)

// newDispatchCmd delivers one lifecycle event to the agent. Events the
// handler defers are redelivered within the same invocation until the
// queue settles; whatever is still deferred afterwards is persisted for
// the next invocation.
func newDispatchCmd() *cobra.Command {
	var (
		relationName string
		app          string
		unit         string
		serveMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "dispatch <event-kind>",
		Short: "Deliver a lifecycle event and run the queue to settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if serveMetrics {
				go func() {
					if err := a.metrics.Serve(ctx); err != nil {
						a.logger.Error(err, "metrics endpoint failed")
					}
				}()
			}

			queue := hooks.NewQueue(a.logger, a.engine.Handle)

			restored, err := a.store.TakeDeferred(a.env.Unit)
			if err != nil {
				return err
			}
			for _, ev := range restored {
				queue.Submit(ev)
			}
			queue.Submit(hooks.Event{
				Kind:     hooks.Kind(args[0]),
				Relation: relationName,
				App:      app,
				Unit:     unit,
			})

			if err := queue.Settle(ctx); err != nil {
				return err
			}
			if remaining := queue.Drain(); len(remaining) > 0 {
				if err := a.store.SaveDeferred(a.env.Unit, remaining); err != nil {
					return err
				}
				a.logger.Info("events held for redelivery", "count", len(remaining))
			}

			cmd.Println(a.engine.Status().String())
			return nil
		},
	}

	cmd.Flags().StringVar(&relationName, "relation", "", "relation name for relation events")
	cmd.Flags().StringVar(&app, "app", "", "counterpart application for relation events")
	cmd.Flags().StringVar(&unit, "unit", "", "counterpart unit for relation events")
	cmd.Flags().BoolVar(&serveMetrics, "serve-metrics", false, "expose prometheus metrics while dispatching")
	return cmd
}

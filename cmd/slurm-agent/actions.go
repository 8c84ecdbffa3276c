package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newDrainCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "drain <nodename>",
		Short: "Drain a compute node for maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.engine.DrainNode(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			cmd.Println(msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason the node is being drained")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <nodename>",
		Short: "Return a drained node to service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.engine.ResumeNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(msg)
			return nil
		},
	}
}

func newShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the cluster configuration as last written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			content, err := a.engine.ShowCurrentConfig(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Print(content)
			return nil
		},
	}
}

func newShowNHCConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-nhc-config",
		Short: "Print the health-check configuration in effect on this node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			content, err := a.engine.ShowNHCConfig(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Print(content)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <username>",
		Short: "Issue a short-lived REST API token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.engine.IssueToken(args[0])
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
}

func newNodeConfiguredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node-configured",
		Short: "Mark this compute node as configured and schedulable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.engine.NodeConfigured(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(msg)
			return nil
		},
	}
}

func newNodeConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node-config [KEY=VALUE ...]",
		Short: "Read or replace operator-set node parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent()
			if err != nil {
				return err
			}
			defer a.Close()

			current, err := a.engine.NodeConfig(cmd.Context(), strings.Join(args, " "))
			if current != "" {
				cmd.Print(current)
			}
			return err
		},
	}
}

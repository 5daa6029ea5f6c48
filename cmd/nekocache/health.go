package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LavishGent/nekocache/pkg/nekocache"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report storage and cache state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			h, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if ok, err := printJSON(w, h); ok {
				return err
			}

			fmt.Fprintf(w, "status:   %s\n", h.Status)
			fmt.Fprintf(w, "storage:  %s (available: %v, durable: %v, circuit: %s)\n",
				h.Storage.Backend, h.Storage.Available, h.Storage.Durable, h.Storage.CircuitBreakerState)
			if h.Storage.LastError != "" {
				fmt.Fprintf(w, "          last error at %s: %s\n", h.Storage.LastErrorTime.Format("15:04:05"), h.Storage.LastError)
			}
			fmt.Fprintf(w, "entries:  %d/%d\n", h.Entries.Count, h.Entries.Capacity)
			fmt.Fprintf(w, "lists:    %d cached, available: %v\n", h.Lists.EntryCount, h.Lists.Available)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

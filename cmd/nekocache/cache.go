package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LavishGent/nekocache/pkg/nekocache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the entry cache",
}

var cacheKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List cached title ids, most recently used last",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			entries := client.Entries(cmd.Context())
			w := cmd.OutOrStdout()

			if ok, err := printJSON(w, entryKeys(entries)); ok {
				return err
			}
			for _, e := range entries {
				providers := make([]string, 0, len(e.Fields))
				for p := range e.Fields {
					providers = append(providers, p)
				}
				slices.Sort(providers)
				fmt.Fprintf(w, "%d\t%s\n", e.Key, strings.Join(providers, ","))
			}
			fmt.Fprintf(w, "%d/%d entries\n", len(entries), client.EntryCache().Capacity())
			return nil
		})
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the cached payloads of a title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			entry, ok := client.Entry(cmd.Context(), id)
			if !ok {
				return fmt.Errorf("title %d is not cached", id)
			}
			w := cmd.OutOrStdout()
			if ok, err := printJSON(w, entry.Fields); ok {
				return err
			}
			providers := make([]string, 0, len(entry.Fields))
			for p := range entry.Fields {
				providers = append(providers, p)
			}
			slices.Sort(providers)
			for _, p := range providers {
				fmt.Fprintf(w, "%s: %s\n", p, entry.Fields[p])
			}
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached title",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			if err := client.ClearEntries(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "entry cache cleared")
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheKeysCmd, cacheGetCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func entryKeys(entries []nekocache.Entry) []int {
	keys := make([]int, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

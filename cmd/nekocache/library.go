package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LavishGent/nekocache/pkg/nekocache"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage favorite titles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			favs := client.Favorites(cmd.Context())
			w := cmd.OutOrStdout()
			if ok, err := printJSON(w, favs); ok {
				return err
			}
			if len(favs) == 0 {
				fmt.Fprintln(w, "no favorites")
				return nil
			}
			for _, id := range favs {
				fmt.Fprintln(w, id)
			}
			return nil
		})
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Mark a title as a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			return client.AddFavorite(cmd.Context(), id)
		})
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Unmark a favorite title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			return client.RemoveFavorite(cmd.Context(), id)
		})
	},
}

var favoritesCheckCmd = &cobra.Command{
	Use:   "check <id>",
	Short: "Report whether a title is a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			fmt.Fprintln(cmd.OutOrStdout(), client.IsFavorite(cmd.Context(), id))
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the watch history, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			return printHistory(cmd.OutOrStdout(), client.History(cmd.Context()))
		})
	},
}

var historyAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Record a title as watched",
	Long: `Add moves the title to the front of the watch history. Its name and poster
come from the entry cache, or from the providers when the title is not cached.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			return client.MarkWatched(cmd.Context(), id)
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the watch history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			if err := client.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "watch history cleared")
			return nil
		})
	},
}

var watchTimeCmd = &cobra.Command{
	Use:   "watchtime",
	Short: "Show the total time spent watching",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			minutes := client.WatchMinutes(cmd.Context())
			w := cmd.OutOrStdout()
			if ok, err := printJSON(w, map[string]int{"totalMinutes": minutes}); ok {
				return err
			}
			fmt.Fprintln(w, formatMinutes(minutes))
			return nil
		})
	},
}

var watchTimeAddCmd = &cobra.Command{
	Use:   "add <minutes>",
	Short: "Add minutes to the total",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes <= 0 {
			return fmt.Errorf("invalid minutes %q", args[0])
		}
		return withClient(func(client *nekocache.Client) error {
			return client.AddWatchMinutes(cmd.Context(), minutes)
		})
	},
}

var watchTimeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set the total back to zero",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			return client.ResetWatchTime(cmd.Context())
		})
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesAddCmd, favoritesRemoveCmd, favoritesCheckCmd)
	historyCmd.AddCommand(historyAddCmd, historyClearCmd)
	watchTimeCmd.AddCommand(watchTimeAddCmd, watchTimeResetCmd)
	rootCmd.AddCommand(favoritesCmd, historyCmd, watchTimeCmd)
}

func printHistory(w io.Writer, history []nekocache.HistoryItem) error {
	if ok, err := printJSON(w, history); ok {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(w, "watch history is empty")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWATCHED\tTITLE")
	for _, h := range history {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", h.AnimeID, h.LastWatched.Local().Format("2006-01-02 15:04"), h.Title)
	}
	return tw.Flush()
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

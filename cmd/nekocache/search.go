package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LavishGent/nekocache/pkg/nekocache"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search titles by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		query := strings.Join(args, " ")

		return withClient(func(client *nekocache.Client) error {
			list, err := client.Search(cmd.Context(), query, page, limit)
			if err != nil {
				return err
			}
			return printAnimeList(cmd.OutOrStdout(), list)
		})
	},
}

var feedCmd = &cobra.Command{
	Use:       "feed <popular|latest|ongoing|anons>",
	Short:     "Show a home-screen list",
	Long:      `Feed shows one of the home-screen lists. Lists are kept for the configured TTL; --refresh drops them first.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"popular", "latest", "ongoing", "anons"},
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := nekocache.ParseFeed(args[0])
		if err != nil {
			return err
		}
		refresh, _ := cmd.Flags().GetBool("refresh")

		return withClient(func(client *nekocache.Client) error {
			if refresh {
				if err := client.ClearFeeds(cmd.Context()); err != nil {
					return err
				}
			}
			list, err := client.Feed(cmd.Context(), feed)
			if err != nil {
				return err
			}
			return printAnimeList(cmd.OutOrStdout(), list)
		})
	},
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List catalog genres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *nekocache.Client) error {
			genres, err := client.Genres(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if ok, err := printJSON(w, genres); ok {
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tNAME\tRUSSIAN")
			for _, g := range genres {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", g.ID, g.Kind, g.Name, g.Russian)
			}
			return tw.Flush()
		})
	},
}

func init() {
	searchCmd.Flags().Int("page", 1, "result page")
	searchCmd.Flags().Int("limit", 20, "results per page")
	feedCmd.Flags().Bool("refresh", false, "drop cached feeds before fetching")

	rootCmd.AddCommand(searchCmd, feedCmd, genresCmd)
}

package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LavishGent/nekocache/pkg/nekocache"
)

var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show a title with its playable sources",
	Long: `Details reads the title from the entry cache and fetches only what is
missing: metadata from Shikimori and sources from the Kodik proxy. Fetched
data is written back to the entry cache.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			d, err := client.Details(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printDetails(cmd.OutOrStdout(), d)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "Refetch a title from both providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			d, err := client.Refresh(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printDetails(cmd.OutOrStdout(), d)
		})
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "List titles from the same franchise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *nekocache.Client) error {
			list, err := client.Related(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printAnimeList(cmd.OutOrStdout(), list)
		})
	},
}

func init() {
	rootCmd.AddCommand(detailsCmd, refreshCmd, relatedCmd)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid title id %q", s)
	}
	return id, nil
}

func printDetails(w io.Writer, d *nekocache.Details) error {
	if ok, err := printJSON(w, d); ok {
		return err
	}

	if a := d.Anime; a != nil {
		fmt.Fprintf(w, "%s", a.Name)
		if a.Russian != "" {
			fmt.Fprintf(w, " / %s", a.Russian)
		}
		fmt.Fprintf(w, "\n%s, %s, score %.2f", a.Kind, a.Status, float64(a.Score))
		if a.Episodes > 0 {
			fmt.Fprintf(w, ", %d episodes", a.Episodes)
		}
		fmt.Fprintln(w)
		if a.Poster() != "" {
			fmt.Fprintf(w, "poster: %s\n", a.Poster())
		}
		if d.Cached.Metadata {
			fmt.Fprintln(w, "(metadata from cache)")
		}
	} else {
		fmt.Fprintf(w, "#%d: metadata unavailable\n", d.ID)
	}

	fmt.Fprintln(w)
	switch {
	case !d.HasSources():
		fmt.Fprintln(w, "sources unavailable")
		return nil
	case len(d.Sources) == 0:
		fmt.Fprintln(w, "no sources")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRANSLATION\tQUALITY\tEPISODES\tLINK")
	for _, s := range d.Sources {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Translation.Title, s.Quality, s.EpisodesCount, s.Link)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if d.Cached.Sources {
		fmt.Fprintln(w, "(sources from cache)")
	}
	return nil
}

func printAnimeList(w io.Writer, list []nekocache.Anime) error {
	if ok, err := printJSON(w, list); ok {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "nothing found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSCORE\tNAME")
	for _, a := range list {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\n", a.ID, a.Kind, float64(a.Score), a.Name)
	}
	return tw.Flush()
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trialclean-cli/internal/utils"
	"github.com/KaramelBytes/trialclean-cli/internal/wiki"
)

var (
	fiJSON    bool
	fiBaseURL string
)

var fetchImagesCmd = &cobra.Command{
	Use:   "fetch-images <title...>",
	Short: "Fetch image metadata for Wikipedia pages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		baseURL := fiBaseURL
		if baseURL == "" {
			baseURL = c.WikiBaseURL
		}
		client := wiki.NewClientWithBaseURL(
			time.Duration(c.HTTPTimeoutSec)*time.Second,
			c.RetryMaxAttempts,
			time.Duration(c.RetryBaseDelayMs)*time.Millisecond,
			time.Duration(c.RetryMaxDelayMs)*time.Millisecond,
			baseURL,
		).WithLogger(log)

		out := cmd.OutOrStdout()
		var pages []*wiki.Page
		for _, title := range args {
			page, err := client.PageImages(cmd.Context(), title)
			if err != nil {
				var nf *wiki.NotFoundError
				if errors.As(err, &nf) {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", err)
					continue
				}
				return err
			}
			pages = append(pages, page)
			if fiJSON {
				continue
			}
			fmt.Fprintf(out, "%s (page %d)\n", page.Title, page.PageID)
			if page.PageImage != "" {
				fmt.Fprintf(out, "  lead: %s\n", page.PageImage)
			}
			if page.Original != "" {
				fmt.Fprintf(out, "  original: %s\n", page.Original)
			}
			if page.Thumbnail != "" {
				fmt.Fprintf(out, "  thumbnail: %s\n", page.Thumbnail)
			}
			for _, im := range page.Images {
				fmt.Fprintf(out, "  - %s\n", im)
			}
		}
		if fiJSON {
			b, err := utils.PrettyJSON(pages)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		}
		if len(pages) == 0 {
			return fmt.Errorf("no pages found")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchImagesCmd)
	fetchImagesCmd.Flags().BoolVar(&fiJSON, "json", false, "print pages as JSON")
	fetchImagesCmd.Flags().StringVar(&fiBaseURL, "base-url", "", "MediaWiki API endpoint (overrides config wiki_base_url)")
}

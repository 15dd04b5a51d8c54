package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	collyfetcher "github.com/JakeFAU/leadhunter-enricher/internal/fetcher/colly"
)

type enrichOutput struct {
	Email       *string                    `json:"email"`
	SocialLinks map[enrich.Platform]string `json:"socialLinks"`
	Success     bool                       `json:"success"`
}

// newEnrichCmd enriches one website without touching any stored lead or credits.
func newEnrichCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "enrich <website>",
		Short:   "Enriches a single website and prints the result as JSON",
		Example: "  leadhunter enrich www.acmecorp.com",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			fetcher := collyfetcher.New(collyfetcher.Config{
				UserAgent:    cfg.Enrichment.UserAgent,
				Timeout:      cfg.FetchTimeout(),
				MaxBodyBytes: cfg.Enrichment.MaxBodyBytes,
			})
			result := enrich.New(fetcher, logger).Enrich(cmd.Context(), args[0])

			links := result.SocialLinks
			if links == nil {
				links = map[enrich.Platform]string{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(enrichOutput{Email: result.Email, SocialLinks: links, Success: result.Success()}); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			return nil
		},
	}
}

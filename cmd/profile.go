package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/report"
)

var (
	profileAddress  string
	profileRadius   int
	profileLanguage string
	profileSections bool
	profileMarkdown bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build the profile of one address and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("profile"); err != nil {
			return err
		}
		if profileSections && profileMarkdown {
			return eris.New("--sections and --markdown are mutually exclusive")
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}

		p, err := env.Pipeline.Run(cmd.Context(), model.Query{
			Address:  profileAddress,
			Radius:   profileRadius,
			Language: profileLanguage,
		})
		if err != nil {
			return err
		}
		zap.L().Info("profile built",
			zap.String("label", p.Location.Label),
			zap.Int64("processing_ms", p.Meta.ProcessingMS),
			zap.Int("warnings", len(p.Meta.Warnings)),
		)

		return writeProfile(cmd.OutOrStdout(), p, profileFormat())
	},
}

func profileFormat() string {
	switch {
	case profileMarkdown:
		return "markdown"
	case profileSections:
		return "sections"
	default:
		return "json"
	}
}

// writeProfile renders p as the full JSON document, its display sections
// or the Markdown report.
func writeProfile(w io.Writer, p *model.HouseProfile, format string) error {
	switch format {
	case "markdown":
		_, err := io.WriteString(w, report.Markdown(p))
		return eris.Wrap(err, "write markdown")
	case "sections":
		return encodeIndented(w, report.Project(p))
	case "json":
		return encodeIndented(w, p)
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	profileCmd.Flags().StringVar(&profileAddress, "address", "", "postal address to profile")
	profileCmd.Flags().IntVar(&profileRadius, "radius", model.DefaultRadius, "search radius in meters")
	profileCmd.Flags().StringVar(&profileLanguage, "language", "fr", "analysis language")
	profileCmd.Flags().BoolVar(&profileSections, "sections", false, "print display sections instead of the profile")
	profileCmd.Flags().BoolVar(&profileMarkdown, "markdown", false, "print the Markdown report")
	_ = profileCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(profileCmd)
}

package logging

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"

	"github.com/ternarybob/siteharvest/internal/common"
	"github.com/ternarybob/siteharvest/internal/config"
)

// PrintStartupBanner prints the startup banner and logs the same information as a
// structured line through arbor, mirroring the reference's PrintBanner but scoped to
// this tool's actual knobs instead of a multi-source SaaS config.
func PrintStartupBanner(cfg *config.Config, workerCount int, logger arbor.ILogger) {
	version := common.GetVersion()
	build := common.GetBuild()

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("SITEHARVEST")
	b.PrintCenteredText("Offline documentation site mirror")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 18)
	b.PrintKeyValue("Build", build, 18)
	b.PrintKeyValue("Root URL", cfg.Crawl.RootURL, 18)
	b.PrintKeyValue("Output dir", cfg.Crawl.OutputDir, 18)
	b.PrintKeyValue("Max depth", depthLabel(cfg.Crawl.MaxDepth), 18)
	b.PrintKeyValue("Workers", fmt.Sprintf("%d", workerCount), 18)
	b.PrintKeyValue("Dry run", fmt.Sprintf("%t", cfg.Crawl.DryRun), 18)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("root_url", cfg.Crawl.RootURL).
		Str("output_dir", cfg.Crawl.OutputDir).
		Int("max_depth", cfg.Crawl.MaxDepth).
		Int("workers", workerCount).
		Bool("dry_run", cfg.Crawl.DryRun).
		Msg("siteharvest started")
}

func depthLabel(d int) string {
	if d <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", d)
}

// PrintShutdownBanner announces a graceful shutdown.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("SITEHARVEST")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("siteharvest shutting down")
}

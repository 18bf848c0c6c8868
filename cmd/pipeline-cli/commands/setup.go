package commands

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	fatihcolor "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-systems/invoice-pipeline/internal/bootstrap"
)

var setupCmd = &cobra.Command{
	Use:   "setup-blueprint",
	Short: "Resolve or create the extraction blueprint and store its ARN",
	Long: `setup-blueprint performs the one-time blueprint bootstrap: it looks
for a live blueprint matching the configured name, creates one from the
embedded schema if none exists, and records the ARN in the parameter
store for subsequent submissions.`,
	RunE: setupBlueprint,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func setupBlueprint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := cmd.Context()
	app, err := bootstrap.NewProduction(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " Resolving blueprint " + cfg.Engine.BlueprintName
	sp.Start()
	arn, err := app.Blueprints.Resolve(ctx, cfg.Engine.BlueprintName)
	sp.Stop()
	if err != nil {
		return err
	}

	fatihcolor.New(fatihcolor.FgGreen).Printf("Blueprint ready: %s\n", arn)
	fatihcolor.New(fatihcolor.FgCyan).Printf("ARN stored at %s\n", cfg.Engine.BlueprintParam)
	return nil
}

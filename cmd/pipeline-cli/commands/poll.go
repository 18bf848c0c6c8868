package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	fatihcolor "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-systems/invoice-pipeline/internal/bootstrap"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
)

var pollCmd = &cobra.Command{
	Use:   "poll <invocation-arn>",
	Short: "Poll a submitted extraction job until it reaches a terminal state",
	Args:  cobra.ExactArgs(1),
	RunE:  pollJob,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func pollJob(cmd *cobra.Command, args []string) error {
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

	invocationARN := args[0]

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = fmt.Sprintf(" Polling %s", invocationARN)
	sp.Start()
	status, err := app.Resolver.Poll(ctx, invocationARN)
	sp.Stop()
	if err != nil {
		return err
	}

	switch status.State {
	case engine.StatusSuccess:
		fatihcolor.New(fatihcolor.FgGreen).Printf("Job succeeded: %s\n", status.OutputURI)
	case engine.StatusServiceError, engine.StatusClientError:
		fatihcolor.New(fatihcolor.FgRed).Printf("Job failed with status %s\n", status.State)
	default:
		fmt.Printf("Job finished with status %s\n", status.State)
	}
	return nil
}

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/pricing-atlas/pkg/models/domain"
	"github.com/de-tools/pricing-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/pricing-atlas/pkg/services/analysis"
	"github.com/de-tools/pricing-atlas/pkg/store/objectstore"
	"github.com/spf13/cobra"
)

type AnalyzeCmd struct {
	env      *Env
	reporter *export.Reporter
	inputs   inputs

	sessionID  string
	primary    string
	secondary  string
	month      string
	allMonths  bool
	sweepPct   float64
	points     int
	outPath    string
	bucket     string
	key        string
	awsProfile string
}

func NewAnalyzeCmd(env *Env, reporter *export.Reporter) *cobra.Command {
	ac := &AnalyzeCmd{env: env, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the price elasticity curve or the optimal price per month",
		RunE:  ac.run,
	}

	ac.inputs.bind(cmd)
	cmd.Flags().StringVar(&ac.sessionID, "session", "", "Pricing service session id from the forecast run")
	cmd.Flags().StringVar(&ac.primary, "primary", "", "Primary entity value (defaults to the first)")
	cmd.Flags().StringVar(&ac.secondary, "secondary", "", "Secondary entity value (defaults to the canonical one)")
	cmd.Flags().StringVar(&ac.month, "month", "", "Month to analyze as YYYY-MM (defaults to the first forecast month)")
	cmd.Flags().BoolVar(&ac.allMonths, "all-months", false, "Compute the optimal price for every forecast month")
	cmd.Flags().Float64Var(&ac.sweepPct, "sweep-pct", 0, "Price sweep range in percent around the current price")
	cmd.Flags().IntVar(&ac.points, "points", 0, "Number of sweep points")
	cmd.Flags().StringVar(&ac.outPath, "out", "", "Export the time series to a .csv or .xlsx file")
	cmd.Flags().StringVar(&ac.bucket, "s3-bucket", "", "Upload the export to this S3 bucket")
	cmd.Flags().StringVar(&ac.key, "s3-key", "", "Object key for the upload (defaults to the export file name)")
	cmd.Flags().StringVar(&ac.awsProfile, "aws-profile", "", "AWS shared config profile for the upload")

	return cmd
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := ac.env.Context(cmd)

	if ac.bucket != "" && ac.outPath == "" {
		return fmt.Errorf("--s3-bucket requires --out")
	}

	settings, err := ac.env.Settings(ctx)
	if err != nil {
		return err
	}

	sweep := settings.DefaultSweep()
	if cmd.Flags().Changed("sweep-pct") {
		sweep.Percent = ac.sweepPct
	}
	if cmd.Flags().Changed("points") {
		sweep.Points = ac.points
	}
	if err := sweep.Validate(); err != nil {
		return err
	}

	forecast, cache, err := ac.inputs.load()
	if err != nil {
		return err
	}

	ctrl, err := ac.env.Controller(settings)
	if err != nil {
		return err
	}
	session, err := ctrl.Open(ctx, analysis.SessionConfig{
		ServiceSessionID: ac.sessionID,
		Forecast:         forecast,
		Cache:            cache,
	})
	if err != nil {
		return fmt.Errorf("failed to open analysis session: %w", err)
	}
	defer func() { _ = ctrl.Close(ctx, session.ID()) }()

	if _, err := session.Select(analysis.SelectionChange{
		Primary:   ac.primary,
		Secondary: ac.secondary,
		Month:     ac.month,
	}); err != nil {
		return err
	}

	var state domain.AnalysisState
	if ac.allMonths {
		state, err = session.RunAllMonths(ctx, sweep)
	} else {
		state, err = session.RunSingle(ctx, sweep)
	}
	if err != nil {
		if state.Notice != "" {
			return errors.New(state.Notice)
		}
		return err
	}

	report := export.NewReport(session.PrimaryDimension(), session.SecondaryDimension(), state)
	if err := ac.reporter.Handle(report); err != nil {
		return err
	}

	if ac.outPath == "" {
		return nil
	}
	return ac.export(ctx, cmd, state)
}

func (ac *AnalyzeCmd) export(ctx context.Context, cmd *cobra.Command, state domain.AnalysisState) error {
	format, err := export.FormatFromPath(ac.outPath)
	if err != nil {
		return err
	}
	data, err := export.Encode(format, state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(ac.outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(state.Rows), ac.outPath)

	if ac.bucket == "" {
		return nil
	}

	uploader := ac.env.Uploader
	if uploader == nil {
		awsCfg, err := objectstore.LoadConfig(ctx, ac.awsProfile)
		if err != nil {
			return err
		}
		uploader = objectstore.NewS3UploaderFromConfig(*awsCfg)
	}

	key := ac.key
	if key == "" {
		key = filepath.Base(ac.outPath)
	}
	uri, err := uploader.Upload(ctx, ac.bucket, key, format.ContentType(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to %s\n", uri)
	return nil
}

package commands

import (
	"github.com/de-tools/pricing-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/pricing-atlas/pkg/services/selection"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type EntitiesCmd struct {
	env      *Env
	reporter *export.EntitiesReporter
	inputs   inputs
}

func NewEntitiesCmd(env *Env, reporter *export.EntitiesReporter) *cobra.Command {
	ec := &EntitiesCmd{env: env, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List the entities and forecast months available for analysis",
		RunE:  ec.run,
	}
	ec.inputs.bind(cmd)
	return cmd
}

func (ec *EntitiesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := ec.env.Context(cmd)

	settings, err := ec.env.Settings(ctx)
	if err != nil {
		return err
	}
	forecast, cache, err := ec.inputs.load()
	if err != nil {
		return err
	}

	dims, err := cache.Dimensions(forecast.PrimaryDimension, forecast.SecondaryDimension)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to discover dataset dimensions, listing forecast entities only")
		dims = nil
	}
	resolver := selection.NewResolver(forecast, selection.Options{
		CanonicalSecondary: settings.CanonicalSecondary,
		DatasetDimensions:  dims,
	})

	report := &export.EntitiesReport{
		PrimaryDimension:   resolver.PrimaryDimension(),
		SecondaryDimension: resolver.SecondaryDimension(),
	}
	for _, group := range resolver.Entities() {
		listing := export.EntityListing{Primary: group.Primary}
		def, _ := resolver.DefaultSecondary(group.Primary)
		for _, secondary := range resolver.Secondaries(group.Primary) {
			listing.Secondaries = append(listing.Secondaries, export.SecondaryListing{
				Name:    secondary,
				Default: secondary == def,
				Months:  resolver.Months(group.Primary, secondary),
			})
		}
		report.Entities = append(report.Entities, listing)
	}

	return ec.reporter.Handle(report)
}

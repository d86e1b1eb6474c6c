package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jocarsa/jocarsa-lavender/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load users, forms and submissions from a YAML fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	fixture, err := seed.LoadFile(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := seed.NewLoader(a.store).Apply(ctx, fixture)
	if err != nil {
		return err
	}
	a.log.Info().
		Int("users", st.Users).
		Int("forms", st.Forms).
		Int("submissions", st.Submissions).
		Int("skipped", st.Skipped).
		Msg("fixture loaded")
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d users, %d forms, %d submissions (%d skipped)\n",
		st.Users, st.Forms, st.Submissions, st.Skipped)
	return nil
}

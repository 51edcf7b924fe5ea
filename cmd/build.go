package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewBuildCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "Build the site once and write the output layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := zap.L()

			s, st, err := newSite(cmd.Context(), v, l, args[0])
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					l.Warn("failed to close storage", zap.Error(err))
				}
			}()

			b, err := s.Reconfigure(cmd.Context())
			if err != nil {
				return err
			}
			l.Info("build published",
				zap.String("generation", b.ID),
				zap.Int("num_resources", len(b.Resources)),
				zap.Int("num_responses", b.Generation.Len()),
				zap.Duration("duration", b.Duration),
			)
			return nil
		},
	}

	addSiteFlags(cmd.Flags(), v)

	return cmd
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var filter, sortKey string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit the list interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return usageError{err}
			}
			k, err := model.ParseSortKey(sortKey)
			if err != nil {
				return usageError{err}
			}

			s, err := a.newStore()
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(cmd.Context(), s, tui.Options{
				Filter: f,
				Sort:   k,
				Logger: a.logger.Named("tui"),
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "Show all, active or completed items")
	cmd.Flags().StringVar(&sortKey, "sort", "created", "Order by created or alphabetical")
	return cmd
}

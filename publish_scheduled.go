package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var publishScheduledCmd = &cobra.Command{
	Use:   "publish-scheduled",
	Short: "Publish scheduled editions whose publication time has passed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack()
		if err != nil {
			return err
		}
		defer s.close()

		published, err := s.services.Publication.PublishDue(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range published {
			fmt.Fprintf(cmd.OutOrStdout(), "published %s v%d\n", e.DocumentID, e.VersionNumber)
		}
		s.log.Info().Int("published", len(published)).Msg("scheduled publishing run finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishScheduledCmd)
}

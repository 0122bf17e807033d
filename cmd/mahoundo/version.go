package main

import (
	"fmt"

	"github.com/spf13/cobra"

	isql "github.com/leftmike/mahoundo/internal/sql"
)

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of mahoundo",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(isql.Version())
			},
		})
}

package main

import "github.com/spf13/cobra"

func main() {
	var rootCmd = &cobra.Command{
		Use:   "elle-check",
		Short: "Transactional anomaly checker for rw-register histories",
	}
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newGenCmd())
	rootCmd.Execute()
}

// Command onboardctl runs maintenance tasks against the onboarding database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "onboardctl",
	Short:         "Maintenance commands for the onboarding service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "configs/.env", "dotenv file to load before reading the environment")

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first completion day (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last completion day (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (stdout when empty)")

	registerCmd.Flags().StringVar(&regName, "name", "", "full name")
	registerCmd.Flags().StringVar(&regCPF, "cpf", "", "CPF, punctuation optional")
	registerCmd.Flags().StringVar(&regJob, "job", "", "job position")
	registerCmd.Flags().StringVar(&regCompany, "company", "", "company")
	registerCmd.Flags().StringVar(&regHiredBy, "hired-by", "", "who hired the employee")
	for _, f := range []string{"name", "cpf", "job", "company"} {
		_ = registerCmd.MarkFlagRequired(f)
	}

	rootCmd.AddCommand(migrateCmd, seedCmd, exportCmd, registerCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

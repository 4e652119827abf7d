package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd crea el comando raíz; sin subcomando arranca el servidor.
func NewRootCmd() *cobra.Command {
	serve := NewServeCmd()
	cmd := &cobra.Command{
		Use:   "forum-auth",
		Short: "Forum authentication service",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if err := godotenv.Load(); err != nil {
				log.Printf("warning: loading .env: %v", err)
			}
		},
		RunE:         serve.RunE,
		SilenceUsage: true,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}

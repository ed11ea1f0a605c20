package cmd

import (
	"fmt"
	"strings"

	"classportal/db"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create missing collections and the initial admin account, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := openPortal(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		report, err := p.database.Bootstrap(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to bootstrap collections: %w", err)
		}
		logBootstrap(report)
		if len(report.Created) == 0 && !report.AdminCreated {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
			return nil
		}
		if len(report.Created) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Created collections: %s\n", strings.Join(report.Created, ", "))
		}
		if report.AdminCreated {
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin account '%s'.\n", p.cfg.AdminUsername)
		}
		return nil
	},
}

func logBootstrap(report db.BootstrapReport) {
	if len(report.Created) > 0 {
		log.WithField("collections", strings.Join(report.Created, ",")).Info("Created missing collections")
	}
	if report.AdminCreated {
		log.Warn("Created the initial admin account. Change its password.")
	}
}

// Package main implements householdctl, a CLI for the household REST API.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"liyu1981.xyz/household-energy-service/pkg/client"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

const defaultServerURL = "http://localhost:1080"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:   "householdctl",
		Short: "CLI for the household energy service",
		Long: `householdctl registers households, switches the active household and
reads aggregated sensor data through the household energy service REST API.`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "household service URL")

	api := func() *client.Client { return client.New(serverURL) }

	rootCmd.AddCommand(
		newRegisterCmd(api),
		newDeleteCmd(api),
		newListCmd(api),
		newFindCmd(api),
		newActivateCmd(api),
		newActiveCmd(api),
		newReadingsCmd(api),
		newExportCmd(api),
	)
	return rootCmd
}

type apiFactory func() *client.Client

func newRegisterCmd(api apiFactory) *cobra.Command {
	var persons int

	cmd := &cobra.Command{
		Use:   "register NAME",
		Short: "Register a household",
		Long: `Register a household under NAME. Names are case-insensitive and stored
uppercase; registering a name that already exists fails.

Examples:
  householdctl register smith --persons 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api().Register(args[0], persons)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s with id %d\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().IntVar(&persons, "persons", 1, "number of people living in the household")
	return cmd
}

func newDeleteCmd(api apiFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a household with its readings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid household id %q", args[0])
			}
			if err := api().Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted household %d\n", id)
			return nil
		},
	}
}

func newListCmd(api apiFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered households",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			households, err := api().List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, h := range households {
				fmt.Fprintf(w, "%d\t%s\n", h.ID, h.Name)
			}
			return w.Flush()
		},
	}
}

func newFindCmd(api apiFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "find NAME",
		Short: "Show one household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			household, err := api().Find(args[0])
			if err != nil {
				return err
			}
			if household == nil {
				return fmt.Errorf("household %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id: %d\nname: %s\npersons: %d\n", household.ID, household.Name, household.CurrentPerson)
			return nil
		},
	}
}

func newActivateCmd(api apiFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "activate NAME",
		Short: "Make a household the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := api().Activate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active household: %s (%d)\n", active.Name, active.HouseholdID)
			return nil
		},
	}
}

func newActiveCmd(api apiFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the active household",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := api().Active()
			if err != nil {
				return err
			}
			if active == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no active household")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active household: %s (%d)\n", active.Name, active.HouseholdID)
			return nil
		},
	}
}

func parseBound(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func newReadingsCmd(api apiFactory) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "readings NAME",
		Short: "Print aggregated readings of a household",
		Long: `Print one line per distinct timestamp with temperature, energy and
person counts summed over all sensors.

Examples:
  householdctl readings smith
  householdctl readings smith --from 2024-01-01T00:00:00Z --to 2024-01-31T23:59:59Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTime, err := parseBound(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			toTime, err := parseBound(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			readings, err := api().Readings(args[0], fromTime, toTime)
			if err != nil {
				return err
			}
			return printReadings(cmd.OutOrStdout(), readings)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "inclusive lower bound (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "inclusive upper bound (RFC 3339)")
	return cmd
}

func printReadings(out io.Writer, readings []models.AggregatedReading) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATETIME\tHOUSEHOLD\tTEMPERATURE\tENERGY\tPERSON")
	for _, r := range readings {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\n", r.Datetime.UTC().Format(time.RFC3339), r.Household, r.Temperature, r.Energy, r.Person)
	}
	return w.Flush()
}

func newExportCmd(api apiFactory) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Save aggregated readings as an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := api().Export(args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "readings.xlsx", "output file")
	return cmd
}

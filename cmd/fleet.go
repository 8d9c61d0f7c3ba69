package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List vehicles with their availability and parking blockers",
	RunE:  runFleetLs,
}

var ordersLsCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the plant's transport orders after one dispatch cycle",
	RunE:  runOrdersLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd, ordersLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	k, _, err := offlineKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	fleet, err := k.Fleet(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tPOSITION\tENERGY\tAVAILABLE\tNOT PARKABLE BECAUSE")
	for _, info := range fleet {
		v := info.Vehicle
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n", v.Name, v.State, v.CurrentPosition, v.EnergyLevel,
			info.Available, strings.Join(info.ParkReasons, "; "))
	}
	return w.Flush()
}

func runOrdersLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	k, _, err := offlineKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	if _, err := k.Dispatch(ctx); err != nil {
		return err
	}
	orders, err := k.Orders(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tSTATE\tVEHICLE\tBLOCKED BY")
	for _, info := range orders {
		o := info.Order
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.Name, o.Type, o.State, o.ProcessingVehicle, strings.Join(info.Reasons, "; "))
	}
	return w.Flush()
}

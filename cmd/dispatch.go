package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch cycle on the plant file and print the decisions",
	RunE:  runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	k, _, err := offlineKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	res, err := k.Dispatch(ctx)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VEHICLE\tORDER\tTYPE\tINITIAL\tCOMPLETE")
	for _, a := range res.Assignments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", a.Vehicle, a.Order, a.OrderType, a.InitialCosts, a.CompleteCosts)
	}
	for _, a := range res.Reserved {
		fmt.Fprintf(w, "%s\t%s\t%s (reserved)\t%d\t%d\n", a.Vehicle, a.Order, a.OrderType, a.InitialCosts, a.CompleteCosts)
	}
	for _, v := range res.Parked {
		fmt.Fprintf(w, "%s\t-\tPark\t-\t-\n", v)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d assigned, %d reserved, %d parked, %d requeued\n",
		len(res.Assignments), len(res.Reserved), len(res.Parked), res.Requeued)
	return err
}

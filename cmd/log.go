package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/agvkernel/config"
	"github.com/kilianp07/agvkernel/core/dispatch/logging"
)

var (
	logVehicle string
	logOrder   string
	logKinds   []string
	logSince   time.Duration
	logLimit   int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Query the decision log",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().StringVar(&logVehicle, "vehicle", "", "only decisions about this vehicle")
	logCmd.Flags().StringVar(&logOrder, "order", "", "only decisions about this transport order")
	logCmd.Flags().StringSliceVar(&logKinds, "kind", nil, "assignment, reroute, cycle or withdrawal")
	logCmd.Flags().DurationVar(&logSince, "since", 0, "only decisions newer than this")
	logCmd.Flags().IntVar(&logLimit, "limit", 0, "print only the most recent decisions")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := logging.NewStore(cfg.Logging.DecisionLog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := logging.LogQuery{Vehicle: logVehicle, Order: logOrder, Limit: logLimit}
	for _, k := range logKinds {
		q.Kinds = append(q.Kinds, logging.Kind(k))
	}
	if logSince > 0 {
		q.Start = time.Now().Add(-logSince)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

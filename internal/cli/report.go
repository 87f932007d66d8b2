package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/memlens/memlens-go/pkg/core"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run one lifecycle maintenance pass and print the report",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the full report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := core.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := client.RunLifecycle(ctx)
	if err != nil {
		return fmt.Errorf("lifecycle run: %w", err)
	}

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("report %s\n", report.ID)
	fmt.Printf("  %s\n", report.Summary)
	for _, rec := range report.Recommendations {
		fmt.Printf("  [%d] %s %s (%s risk): %s\n",
			rec.Priority, rec.Action, rec.MemoryID, rec.RiskLevel, rec.Reasoning)
	}
	return nil
}

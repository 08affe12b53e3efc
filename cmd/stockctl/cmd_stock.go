package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// stockctl availability <product_id>
var availabilityCmd = &cobra.Command{
	Use:   "availability <product_id>",
	Short: "查看商品可售库存",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("无效的商品 ID: %s", args[0])
		}
		c, err := bootContainer()
		if err != nil {
			return err
		}
		if _, err := c.ProductService.Get(uint(id)); err != nil {
			return err
		}
		snapshot, err := c.InventoryService.Availability(uint(id))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

var reconcileFix bool

// stockctl reconcile [--fix]
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "检查预占超过在库的台账行",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := bootContainer()
		if err != nil {
			return err
		}
		issues, err := c.ReconcileService.Run(reconcileFix)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(issues) == 0 {
			fmt.Fprintln(out, "未发现异常")
			return nil
		}
		for _, issue := range issues {
			fmt.Fprintf(out, "product=%d size=%q color=%q stock=%d reserved=%d excess=%d fixed=%t\n",
				issue.Ledger.ProductID, issue.Ledger.Size, issue.Ledger.Color,
				issue.Ledger.StockQuantity, issue.Ledger.ReservedQuantity, issue.Excess, issue.Fixed)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "将预占压回在库数量")
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "stockctl",
	Short:         "Mavazi 库存运维工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// 数据库
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	// 库存
	rootCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(reconcileCmd)

	// 服务
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"errors"
	"fmt"

	"github.com/mavazi-pos/internal/app"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/provider"
	"github.com/mavazi-pos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// bootDB 加载配置并打开数据库
func bootDB() (*config.Config, error) {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := app.InitDatabase(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bootContainer 构建不带队列与 kafka 的服务容器
func bootContainer() (*provider.Container, error) {
	cfg, err := bootDB()
	if err != nil {
		return nil, err
	}
	return provider.NewContainerWithDB(cfg, models.DB, nil, events.NoopPublisher{}), nil
}

// stockctl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := bootDB(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
		return nil
	},
}

type seedProduct struct {
	code   string
	name   string
	price  string
	ledger []service.StockLevelInput
}

var demoCatalog = []seedProduct{
	{
		code:  "TS-CLASSIC",
		name:  "经典圆领T恤",
		price: "1200",
		ledger: []service.StockLevelInput{
			{Size: "S", StockQuantity: 6},
			{Size: "M", StockQuantity: 10},
			{Size: "L", StockQuantity: 8},
			{Size: "XL", StockQuantity: 4},
		},
	},
	{
		code:  "DR-KITENGE",
		name:  "Kitenge 连衣裙",
		price: "3500",
		ledger: []service.StockLevelInput{
			{Size: "M", Color: "red", StockQuantity: 3},
			{Size: "M", Color: "blue", StockQuantity: 2},
			{Size: "L", Color: "red", StockQuantity: 1},
		},
	},
	{
		code:  "SN-RUNNER",
		name:  "跑步鞋",
		price: "5400",
		ledger: []service.StockLevelInput{
			{StockQuantity: 12, LowStockThreshold: 3},
		},
	},
	{
		code:  "GC-VOUCHER",
		name:  "礼品卡",
		price: "1000",
	},
}

// stockctl seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "写入演示商品、库存与默认管理员",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := bootContainer()
		if err != nil {
			return err
		}
		if _, err := app.EnsureDefaultAdmin(c.Config); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, item := range demoCatalog {
			product, err := c.ProductService.GetByCode(item.code)
			if errors.Is(err, service.ErrProductNotFound) {
				product, err = c.ProductService.Create(service.CreateProductInput{
					Code:  item.code,
					Name:  item.name,
					Price: decimal.RequireFromString(item.price),
				})
			}
			if err != nil {
				return fmt.Errorf("seed product %s: %w", item.code, err)
			}
			for _, level := range item.ledger {
				level.ProductID = product.ID
				if _, err := c.StockAdminService.SetLevel(level); err != nil {
					return fmt.Errorf("seed stock %s: %w", item.code, err)
				}
			}
			fmt.Fprintf(out, "%-12s id=%d 台账行=%d\n", item.code, product.ID, len(item.ledger))
		}
		return nil
	},
}

package service

import (
	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"
)

// ReconcileIssue 对账发现的异常行
type ReconcileIssue struct {
	Ledger models.StockLedger `json:"ledger"`
	Excess int                `json:"excess"`
	Fixed  bool               `json:"fixed"`
}

// ReconcileService 库存对账：找出预占超过在库的行，可选地将预占压回在库
type ReconcileService struct {
	ledgerRepo   repository.StockLedgerRepository
	movementRepo repository.StockMovementRepository
}

// NewReconcileService 创建对账服务
func NewReconcileService(ledgerRepo repository.StockLedgerRepository, movementRepo repository.StockMovementRepository) *ReconcileService {
	return &ReconcileService{ledgerRepo: ledgerRepo, movementRepo: movementRepo}
}

// Run 执行对账，fix 为 true 时修正异常行
func (s *ReconcileService) Run(fix bool) ([]ReconcileIssue, error) {
	rows, err := s.ledgerRepo.ListOverReserved()
	if err != nil {
		return nil, wrapStoreError("list over reserved", err)
	}
	issues := make([]ReconcileIssue, 0, len(rows))
	for _, row := range rows {
		issue := ReconcileIssue{Ledger: row, Excess: row.ReservedQuantity - row.StockQuantity}
		if fix {
			ok, err := s.ledgerRepo.ClampReserved(row.ID)
			if err != nil {
				return issues, wrapStoreError("clamp reserved", err)
			}
			issue.Fixed = ok
			if ok {
				s.record(row, -issue.Excess)
			}
		}
		logger.Stock(row.ProductID, row.Size, row.Color).Warnw("stock_reconcile_over_reserved",
			"stock", row.StockQuantity,
			"reserved", row.ReservedQuantity,
			"fixed", issue.Fixed,
		)
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *ReconcileService) record(row models.StockLedger, deltaReserved int) {
	if s.movementRepo == nil {
		return
	}
	item := &models.StockMovement{
		ProductID:     row.ProductID,
		Size:          row.Size,
		Color:         row.Color,
		Reason:        constants.StockMovementClamp,
		DeltaReserved: deltaReserved,
	}
	if err := s.movementRepo.Create(item); err != nil {
		logger.Stock(row.ProductID, row.Size, row.Color).Warnw("stock_movement_record_failed", "reason", constants.StockMovementClamp, "error", err)
	}
}

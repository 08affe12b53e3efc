package service

import "github.com/mavazi-pos/internal/constants"

// allowedTransitions 订单状态机，终态（completed 除退款外、failed、cancelled、refunded）不可回退
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusFailed:     true,
		constants.OrderStatusCancelled:  true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusCompleted: true,
		constants.OrderStatusFailed:    true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusCompleted: {
		constants.OrderStatusRefunded: true,
	},
}

// CanTransitionOrderStatus 判断订单状态能否从 current 迁移到 target
func CanTransitionOrderStatus(current, target string) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// sourceStatuses 返回可迁移到 target 的全部前置状态
func sourceStatuses(target string) []string {
	out := make([]string, 0, 2)
	for _, from := range []string{
		constants.OrderStatusPending,
		constants.OrderStatusProcessing,
		constants.OrderStatusCompleted,
	} {
		if allowedTransitions[from][target] {
			out = append(out, from)
		}
	}
	return out
}

func isTerminalOrderStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return !ok
}

package models

import (
	"fmt"
	"strings"
)

func ParseSide(side string) (OrderSide, error) {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case "BUY":
		return OrderSideBuy, nil
	case "SELL":
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("Некорректное направление: %s", side)
	}
}

func ParseExecutionMode(mode string) (ExecutionMode, error) {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "", "MARKET":
		return ExecutionModeMarket, nil
	case "LIMIT":
		return ExecutionModeLimit, nil
	default:
		return "", fmt.Errorf("Некорректный тип исполнения: %s", mode)
	}
}

package session

import (
	"fmt"
	"strings"
)

// ActivationStrategy decides when breaking a block triggers vein mining.
type ActivationStrategy string

const (
	StrategyAlways ActivationStrategy = "ALWAYS"
	StrategySneak  ActivationStrategy = "SNEAK"
	StrategyStand  ActivationStrategy = "STAND"
	StrategyClient ActivationStrategy = "CLIENT"
	StrategyNone   ActivationStrategy = "NONE"
)

var strategies = []ActivationStrategy{StrategyAlways, StrategySneak, StrategyStand, StrategyClient, StrategyNone}

func Strategies() []ActivationStrategy {
	return append([]ActivationStrategy(nil), strategies...)
}

// ParseStrategy is case-insensitive. "STANDING" is accepted for STAND.
func ParseStrategy(s string) (ActivationStrategy, error) {
	v := ActivationStrategy(strings.ToUpper(strings.TrimSpace(s)))
	if v == "STANDING" {
		return StrategyStand, nil
	}
	for _, st := range strategies {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown activation strategy %q", s)
}

func (a ActivationStrategy) Valid() bool {
	_, err := ParseStrategy(string(a))
	return err == nil
}

// Active evaluates the strategy for one block break.
func (a ActivationStrategy) Active(sneaking, clientMod, keyPressed bool) bool {
	switch a {
	case StrategyAlways:
		return true
	case StrategySneak:
		return sneaking
	case StrategyStand:
		return !sneaking
	case StrategyClient:
		return clientMod && keyPressed
	default:
		return false
	}
}

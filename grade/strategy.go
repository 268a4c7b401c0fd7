package grade

import (
	"fmt"
	"math/big"

	"github.com/ruteri/university-ledger/interfaces"
)

// FinalGradeStrategy aggregates the APPROVED components of one student in one
// class into a final grade. Implementations must be pure.
type FinalGradeStrategy interface {
	Name() string
	FinalGrade(approved []interfaces.GradeRecord) uint64
}

const basisPoints = 10000

const (
	PendingPolicyName      = "pending-policy"
	WeightedByMaxScoreName = "weighted-by-max-score"
)

// PendingPolicy returns 0 for every student. It is the default until an
// aggregation policy has been signed off.
type PendingPolicy struct{}

func (PendingPolicy) Name() string { return PendingPolicyName }

func (PendingPolicy) FinalGrade([]interfaces.GradeRecord) uint64 { return 0 }

// WeightedByMaxScore weights each component by its maxScore: the result is
// sum(score) * 10000 / sum(maxScore), in basis points. It returns 0 when no
// component has been approved.
type WeightedByMaxScore struct{}

func (WeightedByMaxScore) Name() string { return WeightedByMaxScoreName }

func (WeightedByMaxScore) FinalGrade(approved []interfaces.GradeRecord) uint64 {
	// Sums of uint64 components overflow; the ratio itself is at most 10000.
	score, total := new(big.Int), new(big.Int)
	for _, g := range approved {
		score.Add(score, new(big.Int).SetUint64(g.Score))
		total.Add(total, new(big.Int).SetUint64(g.MaxScore))
	}
	if total.Sign() == 0 {
		return 0
	}
	score.Mul(score, big.NewInt(basisPoints))
	return score.Quo(score, total).Uint64()
}

// StrategyByName resolves a strategy from its configuration name. An empty
// name selects PendingPolicy.
func StrategyByName(name string) (FinalGradeStrategy, error) {
	switch name {
	case "", PendingPolicyName:
		return PendingPolicy{}, nil
	case WeightedByMaxScoreName:
		return WeightedByMaxScore{}, nil
	default:
		return nil, fmt.Errorf("unknown final grade strategy %q", name)
	}
}

package pricing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
)

var stoneAge = &model.Plan{ID: "stone-age", Name: "Stone Age", Price: 529}

func TestComputeTotal_NoDiscount_FullRange(t *testing.T) {
	// Every allowed combination of add-on quantities must be exact integer math.
	for backups := 0; backups <= 5; backups++ {
		for ports := 0; ports <= 5; ports++ {
			t.Run(fmt.Sprintf("backups_%d_ports_%d", backups, ports), func(t *testing.T) {
				total := ComputeTotal(stoneAge, backups, ports, nil)
				assert.Equal(t, 529+19*backups+9*ports, total)
			})
		}
	}
}

func TestComputeTotal_StoneAgeScenario(t *testing.T) {
	// 529 + 2 backups (38) + 1 port (9) = 576
	total := ComputeTotal(stoneAge, 2, 1, nil)
	require.Equal(t, 576, total)
}

func TestComputeTotal_PercentDiscount(t *testing.T) {
	discount := &model.Discount{Amount: 10, Kind: model.DiscountPercent}
	total := ComputeTotal(stoneAge, 2, 1, discount)
	// round(576 * 0.9) = round(518.4) = 518
	assert.Equal(t, 518, total)
}

func TestComputeTotal_PercentDiscount_RoundsHalfUp(t *testing.T) {
	plan := &model.Plan{Price: 530}
	discount := &model.Discount{Amount: 25, Kind: model.DiscountPercent}
	// 530 * 0.75 = 397.5 -> rounds up to 398
	assert.Equal(t, 398, ComputeTotal(plan, 0, 0, discount))
}

func TestComputeTotal_FixedDiscount(t *testing.T) {
	discount := &model.Discount{Amount: 100, Kind: model.DiscountFixed}
	total := ComputeTotal(stoneAge, 2, 1, discount)
	assert.Equal(t, 476, total)
}

func TestComputeTotal_FixedDiscount_NeverNegative(t *testing.T) {
	discount := &model.Discount{Amount: 10000, Kind: model.DiscountFixed}
	total := ComputeTotal(stoneAge, 0, 0, discount)
	assert.Equal(t, 0, total, "fixed discount larger than the raw total floors at zero")
}

func TestComputeTotal_FullPercentDiscount(t *testing.T) {
	discount := &model.Discount{Amount: 100, Kind: model.DiscountPercent}
	assert.Equal(t, 0, ComputeTotal(stoneAge, 5, 5, discount))
}

func TestComputeTotal_Idempotent(t *testing.T) {
	discount := &model.Discount{Amount: 15, Kind: model.DiscountPercent}
	first := ComputeTotal(stoneAge, 3, 4, discount)
	second := ComputeTotal(stoneAge, 3, 4, discount)
	assert.Equal(t, first, second, "pure function must yield identical output for identical input")
}

func TestToSecondaryCurrency(t *testing.T) {
	assert.Equal(t, "6.94", ToSecondaryCurrency(576))
	assert.Equal(t, "0.00", ToSecondaryCurrency(0))
	assert.Equal(t, "1.00", ToSecondaryCurrency(83))
}

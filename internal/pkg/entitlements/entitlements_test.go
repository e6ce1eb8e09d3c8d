package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentQuota(t *testing.T) {
	assert.Equal(t, int64(50), DocumentQuota(PlanFree))
	assert.Equal(t, int64(1000), DocumentQuota(PlanPro))
	assert.Equal(t, int64(10000), DocumentQuota(PlanEnterprise))
}

func TestDailyQueryQuota(t *testing.T) {
	assert.Equal(t, int64(25), DailyQueryQuota(PlanFree))
	assert.Equal(t, int64(500), DailyQueryQuota(PlanPro))
	assert.Equal(t, int64(5000), DailyQueryQuota(PlanEnterprise))
}

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, PlanPro, NormalizePlan("pro"))
	assert.Equal(t, PlanPro, NormalizePlan("PRO"))
	assert.Equal(t, PlanEnterprise, NormalizePlan("enterprise"))
	assert.Equal(t, PlanFree, NormalizePlan(""))
	assert.Equal(t, PlanFree, NormalizePlan("unknown"))
}

func TestPlanRank(t *testing.T) {
	assert.Less(t, PlanRank(PlanFree), PlanRank(PlanPro))
	assert.Less(t, PlanRank(PlanPro), PlanRank(PlanEnterprise))
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		in        string
		wantOK    bool
		wantName  string
		wantMinor int64
	}{
		{in: "basic", wantOK: true, wantName: "Basic", wantMinor: 29900},
		{in: "pro", wantOK: true, wantName: "Pro", wantMinor: 49900},
		{in: " PREMIUM ", wantOK: true, wantName: "Premium", wantMinor: 99900},
		{in: "enterprise", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, ok := Lookup(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantName, p.Name)
			assert.Equal(t, tt.wantMinor, p.AmountMinor())
			assert.Equal(t, p.Price*100, p.AmountMinor())
		})
	}
}

func TestPlansOrderedByPrice(t *testing.T) {
	all := Plans()
	require.Len(t, all, 3)
	assert.Equal(t, PlanBasic, all[0].ID)
	assert.Equal(t, PlanPro, all[1].ID)
	assert.Equal(t, PlanPremium, all[2].ID)
}

func TestExternalPlanID(t *testing.T) {
	assert.Equal(t, "RAZORPAY_PLAN_ID_PRO", ExternalPlanEnvKey(PlanPro))

	t.Setenv("RAZORPAY_PLAN_ID_PRO", " plan_Pro123 ")
	assert.Equal(t, "plan_Pro123", ExternalPlanID(PlanPro))
}

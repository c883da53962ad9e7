package pricing

import (
	"sort"
	"strings"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

type PlanID string

const (
	PlanBasic   PlanID = "basic"
	PlanPro     PlanID = "pro"
	PlanPremium PlanID = "premium"
)

// DefaultCurrency is the currency all plan prices are quoted in.
const DefaultCurrency = "INR"

// Plan is a purchasable plan. Price is in major currency units.
type Plan struct {
	ID    PlanID `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

var plans = map[PlanID]Plan{
	PlanBasic:   {ID: PlanBasic, Name: "Basic", Price: 299},
	PlanPro:     {ID: PlanPro, Name: "Pro", Price: 499},
	PlanPremium: {ID: PlanPremium, Name: "Premium", Price: 999},
}

// Lookup resolves a plan identifier. Matching ignores case and surrounding space.
func Lookup(id string) (Plan, bool) {
	p, ok := plans[PlanID(strings.ToLower(strings.TrimSpace(id)))]
	return p, ok
}

// IsKnown reports whether id names a plan in the table.
func IsKnown(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// AmountMinor returns the plan price in minor units (paise).
func (p Plan) AmountMinor() int64 {
	return p.Price * 100
}

// ExternalPlanEnvKey is the env variable holding the gateway plan id for a plan.
func ExternalPlanEnvKey(id PlanID) string {
	return "RAZORPAY_PLAN_ID_" + strings.ToUpper(string(id))
}

// ExternalPlanID returns the configured gateway plan id, or "" if none is set.
func ExternalPlanID(id PlanID) string {
	return strings.TrimSpace(env.GetEnv(ExternalPlanEnvKey(id), ""))
}

// Plans returns all plans ordered by price.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

package entitlement

import "strings"

// Rule lists the tiers that grant one feature. A feature may be granted
// through either side of the platform.
type Rule struct {
	OrgTiers []OrgTier `mapstructure:"org_tiers"`
	PolTiers []PolTier `mapstructure:"pol_tiers"`
}

// Limits holds per-tier numeric quotas. Negative means unlimited.
type Limits struct {
	SavedSearches    int `mapstructure:"saved_searches"`
	MonitoringTopics int `mapstructure:"monitoring_topics"`
	CRMContacts      int `mapstructure:"crm_contacts"`
}

// Unlimited marks a quota with no upper bound.
const Unlimited = -1

// Table is the process-wide feature access table. It is built once at
// startup and never mutated afterwards.
type Table struct {
	features map[string]Rule
	limits   map[OrgTier]Limits
}

// NewTable builds a table from the given rule and limit sets.
func NewTable(features map[string]Rule, limits map[OrgTier]Limits) *Table {
	copied := make(map[string]Rule, len(features))
	for key, rule := range features {
		copied[strings.TrimSpace(key)] = rule
	}
	limitsCopy := make(map[OrgTier]Limits, len(limits))
	for tier, l := range limits {
		limitsCopy[tier] = l
	}
	return &Table{features: copied, limits: limitsCopy}
}

// HasAccess reports whether the actor may use the feature. Unknown
// features always resolve to false.
func (t *Table) HasAccess(ctx UserContext, feature string) bool {
	rule, ok := t.features[strings.TrimSpace(feature)]
	if !ok {
		return false
	}

	if ctx.HasOrgSide() && ctx.OrgTier != "" {
		for _, tier := range rule.OrgTiers {
			if tier == ctx.OrgTier {
				return true
			}
		}
	}

	if ctx.HasPolSide() && ctx.PolTier != "" {
		for _, tier := range rule.PolTiers {
			if tier == ctx.PolTier {
				return true
			}
		}
	}

	return false
}

// LimitsFor returns the quotas attached to an organization tier.
func (t *Table) LimitsFor(tier OrgTier) Limits {
	if l, ok := t.limits[tier]; ok {
		return l
	}
	return t.limits[OrgTierStarter]
}

// Features returns the known feature keys, for diagnostics.
func (t *Table) Features() []string {
	keys := make([]string, 0, len(t.features))
	for key := range t.features {
		keys = append(keys, key)
	}
	return keys
}

// DefaultFeatureAccess is the built-in feature table. An optional
// entitlements.yml can extend or override it at startup.
func DefaultFeatureAccess() map[string]Rule {
	allOrg := []OrgTier{OrgTierStarter, OrgTierProfessional, OrgTierEnterprise, OrgTierGlobal}
	proUp := []OrgTier{OrgTierProfessional, OrgTierEnterprise, OrgTierGlobal}
	entUp := []OrgTier{OrgTierEnterprise, OrgTierGlobal}
	polPaid := []PolTier{PolTierProfessional, PolTierStrategic, PolTierCampaign}

	return map[string]Rule{
		// Legislative tracking
		"legislative.search":          {OrgTiers: allOrg},
		"legislative.ai_summaries":    {OrgTiers: proUp},
		"legislative.ai_impact":       {OrgTiers: entUp},
		"legislative.semantic_search": {OrgTiers: proUp},

		// Monitoring
		"monitoring.basic":        {OrgTiers: allOrg},
		"monitoring.unlimited":    {OrgTiers: entUp},
		"monitoring.custom_query": {OrgTiers: entUp},

		// Alerts
		"alerts.realtime": {OrgTiers: proUp},
		"alerts.daily":    {OrgTiers: allOrg},

		// CRM
		"crm.contacts":           {OrgTiers: proUp},
		"crm.unlimited_contacts": {OrgTiers: entUp},

		// API access
		"api.read":  {OrgTiers: proUp},
		"api.write": {OrgTiers: entUp},
		"api.full":  {OrgTiers: []OrgTier{OrgTierGlobal}},

		// Officeholder features
		"pol.competitive_intel":   {PolTiers: polPaid},
		"pol.constituency_data":   {PolTiers: polPaid},
		"pol.campaign_suite":      {PolTiers: []PolTier{PolTierCampaign}},
		"pol.promoted_visibility": {PolTiers: []PolTier{PolTierStrategic, PolTierCampaign}},
	}
}

// DefaultTierLimits is the built-in quota table.
func DefaultTierLimits() map[OrgTier]Limits {
	return map[OrgTier]Limits{
		OrgTierStarter:      {SavedSearches: 5, MonitoringTopics: 5, CRMContacts: 0},
		OrgTierProfessional: {SavedSearches: 25, MonitoringTopics: 25, CRMContacts: 100},
		OrgTierEnterprise:   {SavedSearches: Unlimited, MonitoringTopics: 100, CRMContacts: Unlimited},
		OrgTierGlobal:       {SavedSearches: Unlimited, MonitoringTopics: Unlimited, CRMContacts: Unlimited},
	}
}

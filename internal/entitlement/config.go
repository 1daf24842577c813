package entitlement

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// fileRule mirrors Rule with plain strings for file decoding.
type fileRule struct {
	OrgTiers []string `mapstructure:"org_tiers"`
	PolTiers []string `mapstructure:"pol_tiers"`
}

// LoadTable builds the feature table from the built-in defaults, merged
// with an optional entitlements.yml override file. The table is read once
// at startup; there is no reload path.
func LoadTable() (*Table, error) {
	features := DefaultFeatureAccess()
	limits := DefaultTierLimits()

	v := viper.New()
	v.SetConfigName("entitlements")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/polaris/config")
	v.AddConfigPath("/etc/polaris")
	v.AddConfigPath(".")

	v.SetEnvPrefix("POLARIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		return NewTable(features, limits), nil
	}

	var overrides map[string]fileRule
	if err := v.UnmarshalKey("features", &overrides); err != nil {
		return nil, err
	}
	for key, raw := range overrides {
		rule, err := parseFileRule(raw)
		if err != nil {
			return nil, err
		}
		features[key] = rule
	}

	var limitOverrides map[string]Limits
	if err := v.UnmarshalKey("tier_limits", &limitOverrides); err != nil {
		return nil, err
	}
	for tier, l := range limitOverrides {
		if !ValidOrgTier(tier) {
			return nil, errors.New("unknown tier in tier_limits: " + tier)
		}
		limits[ParseOrgTier(tier)] = l
	}

	return NewTable(features, limits), nil
}

func parseFileRule(raw fileRule) (Rule, error) {
	rule := Rule{}
	for _, tier := range raw.OrgTiers {
		if !ValidOrgTier(tier) {
			return Rule{}, errors.New("unknown org tier: " + tier)
		}
		rule.OrgTiers = append(rule.OrgTiers, ParseOrgTier(tier))
	}
	for _, tier := range raw.PolTiers {
		parsed := PolTier(strings.ToLower(strings.TrimSpace(tier)))
		if _, ok := polTierOrder[parsed]; !ok {
			return Rule{}, errors.New("unknown officeholder tier: " + tier)
		}
		rule.PolTiers = append(rule.PolTiers, parsed)
	}
	return rule, nil
}

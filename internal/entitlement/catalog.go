package entitlement

// Product describes one sellable plan for the pricing surface. Prices are
// in cents; the billing provider holds the authoritative price objects.
type Product struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	MonthlyPrice int64  `json:"monthly_price"`
	AnnualPrice  int64  `json:"annual_price"`
}

// Catalog is the static plan catalog for both sides of the platform.
type Catalog struct {
	Org map[OrgTier]Product `json:"org"`
	Pol map[PolTier]Product `json:"pol"`
}

// DefaultCatalog returns the built-in plan catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Org: map[OrgTier]Product{
			OrgTierStarter: {
				Name:        "Polaris Starter",
				Description: "Essential legislative tracking for small organizations",
			},
			OrgTierProfessional: {
				Name:         "Polaris Professional",
				Description:  "Advanced intelligence for growing teams",
				MonthlyPrice: 29900,
				AnnualPrice:  287040,
			},
			OrgTierEnterprise: {
				Name:         "Polaris Enterprise",
				Description:  "Full platform for large organizations",
				MonthlyPrice: 99900,
				AnnualPrice:  959040,
			},
			OrgTierGlobal: {
				Name:         "Polaris Global",
				Description:  "Unlimited access for global operations",
				MonthlyPrice: 249900,
				AnnualPrice:  2399040,
			},
		},
		Pol: map[PolTier]Product{
			PolTierFoundation: {
				Name:        "Polaris Foundation",
				Description: "Free tier for elected officials",
			},
			PolTierProfessional: {
				Name:         "Polaris Professional (Officeholder)",
				Description:  "Competitive intelligence tools",
				MonthlyPrice: 9900,
				AnnualPrice:  95040,
			},
			PolTierStrategic: {
				Name:         "Polaris Strategic",
				Description:  "Full strategic positioning suite",
				MonthlyPrice: 24900,
				AnnualPrice:  239040,
			},
			PolTierCampaign: {
				Name:         "Polaris Campaign",
				Description:  "Complete campaign intelligence",
				MonthlyPrice: 49900,
				AnnualPrice:  479040,
			},
		},
	}
}

package market

import (
	"fmt"
	"strings"
)

// SectorProfile carries the per-sector assumptions behind the estimated
// figures. These are editorial assumptions, not reported data.
type SectorProfile struct {
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	ChurnRate        float64 `json:"churnRate"`
	BacklogRatio     float64 `json:"backlogRatio"`
	RevenuePerMember float64 `json:"revenuePerMember"`
	Outlook          string  `json:"outlook"`
}

var sectorProfiles = []SectorProfile{
	{
		Slug:             "technology",
		Name:             "Technology",
		ChurnRate:        0.06,
		BacklogRatio:     0.35,
		RevenuePerMember: 180,
		Outlook:          "Subscription revenue and AI capital spending remain the dominant growth drivers.",
	},
	{
		Slug:             "consumer-cyclical",
		Name:             "Consumer Cyclical",
		ChurnRate:        0.18,
		BacklogRatio:     0.10,
		RevenuePerMember: 95,
		Outlook:          "Loyalty programs and repeat purchase rates drive margin durability.",
	},
	{
		Slug:             "industrials",
		Name:             "Industrials",
		ChurnRate:        0.04,
		BacklogRatio:     1.20,
		RevenuePerMember: 0,
		Outlook:          "Funded backlog conversion is the figure to watch through the cycle.",
	},
	{
		Slug:             "financial-services",
		Name:             "Financial Services",
		ChurnRate:        0.09,
		BacklogRatio:     0,
		RevenuePerMember: 310,
		Outlook:          "Net interest margins and fee income carry earnings while credit normalizes.",
	},
	{
		Slug:             "healthcare",
		Name:             "Healthcare",
		ChurnRate:        0.07,
		BacklogRatio:     0.25,
		RevenuePerMember: 220,
		Outlook:          "Utilization trends and pipeline readouts set the tone for the sector.",
	},
	{
		Slug:             "energy",
		Name:             "Energy",
		ChurnRate:        0.03,
		BacklogRatio:     0.60,
		RevenuePerMember: 0,
		Outlook:          "Capital discipline keeps free cash flow elevated across commodity cycles.",
	},
}

// Sectors lists every sector profile.
func Sectors() []SectorProfile {
	out := make([]SectorProfile, len(sectorProfiles))
	copy(out, sectorProfiles)
	return out
}

// SectorBySlug looks a profile up by URL slug.
func SectorBySlug(slug string) (*SectorProfile, bool) {
	for i := range sectorProfiles {
		if sectorProfiles[i].Slug == slug {
			return &sectorProfiles[i], true
		}
	}
	return nil, false
}

func profileForSector(name string) *SectorProfile {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range sectorProfiles {
		if strings.ToLower(sectorProfiles[i].Name) == normalized {
			return &sectorProfiles[i]
		}
	}
	return nil
}

// FAQItem is one question/answer block for the sector pages.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SectorFAQ builds the FAQ blocks for a ticker within a sector, with the
// company's figures interpolated into the answers. With nil data it falls
// back to sector-level assumptions only.
func SectorFAQ(profile *SectorProfile, data *StockData) []FAQItem {
	if data == nil {
		return []FAQItem{
			{
				Question: fmt.Sprintf("What does churn look like in %s?", profile.Name),
				Answer: fmt.Sprintf("Typical %s companies see annual churn near %.1f%%. %s",
					profile.Name, profile.ChurnRate*100, profile.Outlook),
			},
			{
				Question: fmt.Sprintf("What is the outlook for %s?", profile.Name),
				Answer:   profile.Outlook,
			},
		}
	}

	name := data.Snapshot.Ticker
	if data.CompanyFacts != nil && data.CompanyFacts.Name != "" {
		name = data.CompanyFacts.Name
	}

	faq := []FAQItem{
		{
			Question: fmt.Sprintf("What is %s's return on assets?", name),
			Answer: fmt.Sprintf("%s currently reports a return on assets of %s, against a %s sector backdrop. %s",
				name, data.Figures.ROA, profile.Name, profile.Outlook),
		},
		{
			Question: fmt.Sprintf("How sticky is %s's customer base?", name),
			Answer: fmt.Sprintf("Typical %s companies see annual churn near %s. Applied to %s's revenue base, that implies roughly %s active loyalty members. These are sector-level estimates, not reported figures.",
				profile.Name, data.Figures.EstimatedChurn, name, data.Figures.LoyaltyMembers),
		},
	}

	if profile.BacklogRatio > 0 {
		faq = append(faq, FAQItem{
			Question: fmt.Sprintf("How large is %s's funded backlog?", name),
			Answer: fmt.Sprintf("Using a %.0f%% backlog-to-revenue assumption for the %s sector, %s's funded backlog is estimated at %s.",
				profile.BacklogRatio*100, profile.Name, name, data.Figures.FundedBacklog),
		})
	}

	return faq
}

package review

import "fmt"

// LegalArticle is one numbered clause of the reference regulation. The
// catalogue is immutable after load; Frequency is the empirical share of
// reviewed measures historically citing the article, in [0,1].
type LegalArticle struct {
	ID        int
	Citation  string
	Title     string
	Text      string
	Concepts  []string
	Severity  Severity
	Frequency float64
}

// Catalogue lists the review standards of the regulation in article order.
var Catalogue = []LegalArticle{
	{
		ID: 8, Citation: "Article 8", Title: "Market access and exit restrictions",
		Text: "Measures shall not set unauthorized access or exit conditions, additional approvals, or licensing layers that keep operators out of a market.",
		Concepts: []string{"market access", "entry barrier", "additional approval", "licensing", "negative list", "market exit"},
		Severity: SeverityHigh, Frequency: 0.90,
	},
	{
		ID: 9, Citation: "Article 9", Title: "Free movement of goods and factors",
		Text: "Measures shall not block or burden the free flow of goods, services, or production factors between regions, including discriminatory fees, inspections, or filings for non-local goods.",
		Concepts: []string{"non-local", "other regions", "checkpoint", "inspection", "discriminatory charges", "free movement"},
		Severity: SeverityHigh, Frequency: 0.72,
	},
	{
		ID: 10, Citation: "Article 10", Title: "Designated transactions",
		Text: "Measures shall not require operators to deal with designated suppliers, vendors, or intermediary institutions.",
		Concepts: []string{"designated supplier", "designated agency", "shall purchase from", "exclusive distributor"},
		Severity: SeverityHigh, Frequency: 0.80,
	},
	{
		ID: 11, Citation: "Article 11", Title: "Local registration requirements",
		Text: "Measures shall not condition participation on local registration, incorporation, branch establishment, or local investment.",
		Concepts: []string{"local registration", "locally registered", "branch establishment", "local investment", "incorporated in"},
		Severity: SeverityHigh, Frequency: 0.75,
	},
	{
		ID: 12, Citation: "Article 12", Title: "Discriminatory bidding conditions",
		Text: "Tender and procurement measures shall not impose qualification conditions that favour particular operators or exclude non-local bidders.",
		Concepts: []string{"bidding", "tender", "procurement", "qualification requirement", "bidders must"},
		Severity: SeverityMedium, Frequency: 0.85,
	},
	{
		ID: 13, Citation: "Article 13", Title: "Selective tax preferences",
		Text: "Measures shall not grant tax rebates, reductions, or holidays to particular operators without a basis in law or State Council policy.",
		Concepts: []string{"tax rebate", "tax reduction", "tax holiday", "tax refund", "preferential tax"},
		Severity: SeverityHigh, Frequency: 0.78,
	},
	{
		ID: 14, Citation: "Article 14", Title: "Fiscal rewards tied to contribution",
		Text: "Measures shall not pay fiscal rewards or subsidies to particular operators linked to their tax contribution or revenue retained locally.",
		Concepts: []string{"tax contribution", "fiscal reward", "financial reward", "reward tied to", "subsidy linked"},
		Severity: SeverityHigh, Frequency: 0.88,
	},
	{
		ID: 15, Citation: "Article 15", Title: "Selective reduction of factor costs",
		Text: "Measures shall not selectively discount land, utilities, social-insurance contributions, or other operating costs for particular operators.",
		Concepts: []string{"land discount", "utility discount", "reduced rent", "cost reduction", "social insurance relief"},
		Severity: SeverityMedium, Frequency: 0.60,
	},
	{
		ID: 16, Citation: "Article 16", Title: "Selective regulatory exemption",
		Text: "Measures shall not exempt particular operators from generally applicable regulation, inspection, or penalty standards.",
		Concepts: []string{"exempt from inspection", "regulatory exemption", "waived penalty"},
		Severity: SeverityMedium, Frequency: 0.50,
	},
	{
		ID: 17, Citation: "Article 17", Title: "Unauthorized price intervention",
		Text: "Measures shall not fix, floor, or cap prices for goods and services outside the lawful government-pricing catalogue.",
		Concepts: []string{"government-set price", "price cap", "price floor", "guided price"},
		Severity: SeverityLow, Frequency: 0.55,
	},
	{
		ID: 18, Citation: "Article 18", Title: "Compelled anti-competitive conduct",
		Text: "Measures shall not compel or organize operators to enter monopoly agreements or to coordinate prices, output, or market division.",
		Concepts: []string{"coordinate prices", "monopoly agreement", "market division", "self-discipline price"},
		Severity: SeverityHigh, Frequency: 0.45,
	},
	{
		ID: 19, Citation: "Article 19", Title: "Other measures restricting competition",
		Text: "Measures shall not otherwise eliminate or restrict competition between operators.",
		Concepts: []string{"restrict competition", "eliminate competition"},
		Severity: SeverityLow, Frequency: 0.40,
	},
}

var catalogueByID = func() map[int]*LegalArticle {
	m := make(map[int]*LegalArticle, len(Catalogue))
	for i := range Catalogue {
		m[Catalogue[i].ID] = &Catalogue[i]
	}
	return m
}()

// ArticleByID returns the catalogue entry for id, or nil.
func ArticleByID(id int) *LegalArticle {
	return catalogueByID[id]
}

// FormatCitation renders the canonical citation string for up to two article
// ids. The format is fixed; downstream consumers parse it verbatim.
func FormatCitation(articles []int) string {
	switch len(articles) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("violates %s Article %d", RegulationName, articles[0])
	default:
		return fmt.Sprintf("violates %s Article %d and Article %d", RegulationName, articles[0], articles[1])
	}
}

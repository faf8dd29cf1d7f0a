package capture

import "strings"

var classifyRules = []struct {
	docType DocumentType
	terms   []string
}{
	{TypeInvoice, []string{"invoice", "bill", "payment"}},
	{TypeReceipt, []string{"receipt", "purchase", "transaction"}},
	{TypeContract, []string{"contract", "agreement", "terms"}},
	{TypeReport, []string{"report", "analysis", "summary"}},
	{TypeLetter, []string{"letter", "dear", "sincerely"}},
}

// Classify labels text by the first rule with a matching substring.
func Classify(text string) DocumentType {
	lower := strings.ToLower(text)
	for _, rule := range classifyRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.docType
			}
		}
	}
	return TypeDocument
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	domcorpus "github.com/taxtaxi/tariffd/internal/domain/corpus"
)

// usitcRow is one line of a USITC HTS export
// (https://hts.usitc.gov/reststop/exportList, format=JSON).
type usitcRow struct {
	HTSNumber   string   `json:"htsno"`
	Description string   `json:"description"`
	General     string   `json:"general"`
	Special     string   `json:"special"`
	Other       string   `json:"other"`
	Units       []string `json:"units"`
}

func (r usitcRow) hasDutyRate() bool {
	return strings.TrimSpace(r.General) != "" ||
		strings.TrimSpace(r.Special) != "" ||
		strings.TrimSpace(r.Other) != ""
}

// dutyLine is the duty-rate text a corpus document reports and the HTS
// line it came from.
type dutyLine struct {
	Code    string
	General string
	Special string
	Other   string
	Units   []string
}

// loadUSITC converts a USITC export into corpus documents. Statistical
// suffix lines usually carry blank duty columns; the rate that legally
// applies lives on an ancestor line, resolved through the 10-8-6-4 digit
// fallback chain. Lines with no resolvable duty rate are skipped.
// Returns the documents and how many inherited their rate from a parent.
func loadUSITC(path string) ([]domcorpus.Document, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read USITC export: %w", err)
	}

	var rows []usitcRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, 0, fmt.Errorf("parse USITC export %s: %w", path, err)
	}

	byDigits := make(map[string]usitcRow, len(rows))
	for _, row := range rows {
		digits := htsDigits(row.HTSNumber)
		if digits == "" {
			continue
		}
		if _, seen := byDigits[digits]; !seen {
			byDigits[digits] = row
		}
	}

	var (
		docs      []domcorpus.Document
		inherited int
		seen      = make(map[string]struct{}, len(rows))
	)
	for _, row := range rows {
		digits := htsDigits(row.HTSNumber)
		if len(digits) < 4 || strings.TrimSpace(row.Description) == "" {
			continue
		}
		if _, dup := seen[digits]; dup {
			continue
		}
		seen[digits] = struct{}{}

		duty, ok := resolveDutyLine(row, byDigits)
		if !ok {
			continue
		}
		code := domcorpus.FormatHTS(row.HTSNumber)
		if duty.Code != code {
			inherited++
		}

		doc, err := domcorpus.New(
			"usitc-"+digits,
			"usitc:"+code,
			strings.TrimSpace(row.Description),
			buildExcerpt(code, row, duty),
			code,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("document for HTS %s: %w", code, err)
		}
		docs = append(docs, doc)
	}
	return docs, inherited, nil
}

// resolveDutyLine finds the row that defines the duty rate for a line:
// the line itself when any of its duty columns is filled, otherwise the
// first ancestor (deepest first) with one. Units always belong to the
// requested line, not the line the rate came from.
func resolveDutyLine(row usitcRow, byDigits map[string]usitcRow) (dutyLine, bool) {
	candidates := []usitcRow{row}
	for _, code := range domcorpus.AncestorHTSCodes(row.HTSNumber) {
		if anc, ok := byDigits[htsDigits(code)]; ok {
			candidates = append(candidates, anc)
		}
	}
	for _, c := range candidates {
		if c.hasDutyRate() {
			return dutyLine{
				Code:    domcorpus.FormatHTS(c.HTSNumber),
				General: strings.TrimSpace(c.General),
				Special: strings.TrimSpace(c.Special),
				Other:   strings.TrimSpace(c.Other),
				Units:   row.Units,
			}, true
		}
	}
	return dutyLine{}, false
}

// buildExcerpt renders the retrieval text for one tariff line. The excerpt
// is what the API returns as supporting evidence, so it has to stand on
// its own.
func buildExcerpt(code string, row usitcRow, duty dutyLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTS %s, %s.", code, strings.TrimSuffix(strings.TrimSpace(row.Description), "."))
	if duty.General != "" {
		fmt.Fprintf(&b, " General rate of duty: %s.", strings.TrimSuffix(duty.General, "."))
	}
	if duty.Special != "" {
		fmt.Fprintf(&b, " Special rates: %s.", strings.TrimSuffix(duty.Special, "."))
	}
	if duty.Other != "" {
		fmt.Fprintf(&b, " Column 2 rate: %s.", strings.TrimSuffix(duty.Other, "."))
	}
	if len(duty.Units) > 0 {
		fmt.Fprintf(&b, " Units of quantity: %s.", strings.Join(duty.Units, ", "))
	}
	if duty.Code != code {
		fmt.Fprintf(&b, " Duty rates apply from parent line %s.", duty.Code)
	}

	excerpt := b.String()
	if len(excerpt) > domcorpus.MaxExcerptSize {
		cut := excerpt[:domcorpus.MaxExcerptSize]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		excerpt = cut
	}
	return excerpt
}

func htsDigits(code string) string {
	return strings.ReplaceAll(domcorpus.NormalizeHTS(code), ".", "")
}

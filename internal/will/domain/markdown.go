package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const notSpecified = "Not specified"

// GenerateMarkdown renders the draft will text for clientName. Output depends
// only on its arguments.
func GenerateMarkdown(clientName string, p Payload) string {
	var b strings.Builder

	b.WriteString("# DRAFT WILL\n\n")
	fmt.Fprintf(&b, "**This is a draft will for %s**\n\n", orDefault(clientName, notSpecified))
	b.WriteString("---\n\n")

	writePersonalInfo(&b, p.PersonalInfo)
	writeExecutors(&b, p.Executors)
	writeBeneficiaries(&b, p.Beneficiaries)
	writeGuardianship(&b, p.Guardianship)
	writeResidue(&b, p.Residue)

	b.WriteString("---\n\n")
	b.WriteString("*This is a draft will and should not be considered legally binding until properly executed with witnesses.*\n\n")
	b.WriteString("*Generated by My Will Platform*")
	return b.String()
}

func writePersonalInfo(b *strings.Builder, info *PersonalInfo) {
	b.WriteString("## 1. PERSONAL INFORMATION\n\n")
	if info == nil {
		info = &PersonalInfo{}
	}
	field(b, "Full Name", info.FullName)
	field(b, "Date of Birth", formatDate(info.DateOfBirth))
	field(b, "Marital Status", info.MaritalStatus)
	field(b, "Nationality", info.Nationality)

	if a := info.Address; a != nil {
		b.WriteString("**Address:**\n")
		b.WriteString(a.Line1 + "\n")
		if a.Line2 != "" {
			b.WriteString(a.Line2 + "\n")
		}
		fmt.Fprintf(b, "%s, %s\n", a.City, a.Postcode)
		b.WriteString(orDefault(a.Country, "UK") + "\n\n")
	}
}

func writeExecutors(b *strings.Builder, executors []Executor) {
	b.WriteString("## 2. EXECUTORS\n\n")
	if len(executors) == 0 {
		b.WriteString(notSpecified + "\n\n")
		return
	}
	for i, e := range executors {
		prefix := ""
		if e.IsReserve {
			prefix = "Reserve "
		}
		fmt.Fprintf(b, "**%sExecutor %d:** %s\n\n", prefix, i+1, orDefault(e.FullName, notSpecified))
		field(b, "Relationship", e.Relationship)
		field(b, "Address", e.Address)
	}
}

func writeBeneficiaries(b *strings.Builder, beneficiaries []Beneficiary) {
	b.WriteString("## 3. BENEFICIARIES\n\n")
	if len(beneficiaries) == 0 {
		b.WriteString(notSpecified + "\n\n")
		return
	}
	for i, ben := range beneficiaries {
		fmt.Fprintf(b, "**Beneficiary %d:** %s\n\n", i+1, orDefault(ben.Name, notSpecified))
		kind := "Individual"
		if ben.IsCharity {
			kind = "Charity"
		}
		field(b, "Type", kind)
		field(b, "Relationship", ben.Relationship)
		fmt.Fprintf(b, "**Share:** %s%%\n\n", strconv.FormatFloat(ben.Share, 'f', -1, 64))
	}
}

// guardianship is only written when there are minor children and named guardians
func writeGuardianship(b *strings.Builder, g *Guardianship) {
	if g == nil || !g.HasMinorChildren || len(g.Guardians) == 0 {
		return
	}
	b.WriteString("## 4. GUARDIANSHIP\n\n")
	b.WriteString("**Guardians for Minor Children:**\n\n")
	for i, guardian := range g.Guardians {
		fmt.Fprintf(b, "**Guardian %d:** %s\n\n", i+1, orDefault(guardian.FullName, notSpecified))
		field(b, "Relationship", guardian.Relationship)
		field(b, "Address", guardian.Address)
	}
	if g.SpecialInstructions != "" {
		field(b, "Special Instructions", g.SpecialInstructions)
	}
}

func writeResidue(b *strings.Builder, r *Residue) {
	b.WriteString("## 5. RESIDUE AND SPECIFIC GIFTS\n\n")
	if r == nil {
		r = &Residue{}
	}
	field(b, "Distribution Type", r.DistributionType)

	if len(r.SpecificGifts) > 0 {
		b.WriteString("**Specific Gifts:**\n\n")
		for i, gift := range r.SpecificGifts {
			fmt.Fprintf(b, "**Gift %d:**\n", i+1)
			fmt.Fprintf(b, "- **To:** %s\n", gift.Beneficiary)
			fmt.Fprintf(b, "- **Item/Amount:** %s\n", gift.ItemOrAmount)
			if gift.Notes != "" {
				fmt.Fprintf(b, "- **Notes:** %s\n", gift.Notes)
			}
			b.WriteString("\n")
		}
	}
	if r.FuneralWishes != "" {
		field(b, "Funeral Wishes", r.FuneralWishes)
	}
	if r.SpecialClauses != "" {
		field(b, "Special Clauses", r.SpecialClauses)
	}
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "**%s:** %s\n\n", label, orDefault(value, notSpecified))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// formatDate renders YYYY-MM-DD as DD/MM/YYYY, leaving other input untouched.
func formatDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006")
}

package msi

import (
	"github.com/deploymenttheory/go-msi/internal/parsers/signature"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Metadata returns the summary information with both the named fields and the raw
// properties keyed by id, plus the signature status. A damaged signature stream is
// reported in the diagnostics.
func (p *Package) Metadata() (*Metadata, error) {
	sig, _ := signature.Locate(p.src)

	m := &Metadata{
		SummaryInformation: *p.summary,
		IsSigned:           sig.Present(),
		Signature:          sig.Status,
	}
	for _, d := range p.diagnostics {
		if d.Scope == types.ScopeProperty || d.Name == types.SummaryInformationStream {
			m.Diagnostics = append(m.Diagnostics, d)
		}
	}
	m.Diagnostics = append(m.Diagnostics, sig.Diagnostics...)
	return m, nil
}

// Summary returns the decoded summary information
func (p *Package) Summary() *types.SummaryInformation {
	s := *p.summary
	return &s
}

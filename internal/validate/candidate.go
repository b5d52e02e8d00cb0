package validate

import "github.com/mkessler/mapgate-go/internal/models"

// ValidateCandidate checks a proposed mapping against the captured schemas.
// Unmapped candidates (no source column) are legal; they only document a gap.
func ValidateCandidate(c models.MappingCandidate, source, target models.SchemaDescriptor) error {
	if err := ValidateIdentifier(c.TargetColumn); err != nil {
		return err
	}
	if !target.HasColumn(c.TargetColumn) {
		return &HallucinatedReferenceError{Kind: "column", Name: c.TargetColumn}
	}
	if !c.Mapped() {
		return nil
	}
	if err := ValidateIdentifier(c.SourceColumn); err != nil {
		return err
	}
	if !source.HasColumn(c.SourceColumn) {
		return &HallucinatedReferenceError{Kind: "column", Name: c.SourceColumn}
	}
	return nil
}

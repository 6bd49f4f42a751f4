package store

import (
	"github.com/sells-group/prospect-cli/internal/model"
)

func encodeArtifacts(a model.LeadArtifacts) (brand, concept string, err error) {
	brand, err = model.EncodeBrandAnalysis(a.BrandAnalysis)
	if err != nil {
		return "", "", err
	}
	concept, err = model.EncodeAppConcept(a.AppConcept)
	if err != nil {
		return "", "", err
	}
	return brand, concept, nil
}

// decodeArtifacts fills the structured artifact fields of l from their stored
// JSON. Nil inputs leave the fields unset.
func decodeArtifacts(l *model.Lead, brand, concept *string) error {
	if brand != nil && *brand != "" {
		b, err := model.DecodeBrandAnalysis(*brand)
		if err != nil {
			return err
		}
		l.BrandAnalysis = b
	}
	if concept != nil && *concept != "" {
		c, err := model.DecodeAppConcept(*concept)
		if err != nil {
			return err
		}
		l.AppConcept = c
	}
	return nil
}

package fields

// DefaultExtractors returns the standard extractor family, one per target
// entity.
func DefaultExtractors() []Extractor {
	return []Extractor{
		MetadataExtractor{},
		TierExtractor{},
		FreeItemExtractor{},
	}
}

package navigator

// Selectors locates the interactive controls the bot drives. Kept separate
// from the extractor's field selectors: these break for different reasons
// (navigation chrome vs listing markup).
type Selectors struct {
	PostcodeInput      string `mapstructure:"postcode_input"`
	PostcodeSuggestion string `mapstructure:"postcode_suggestion"`
	ReadCatalogue      string `mapstructure:"read_catalogue"`
	CategoryMenu       string `mapstructure:"category_menu"`
	CategoryLinks      string `mapstructure:"category_links"`
	NextPage           string `mapstructure:"next_page"`
}

// DefaultSelectors returns the selector set for the current catalogue site.
func DefaultSelectors() Selectors {
	return Selectors{
		PostcodeInput:      `input#catalogue-postcode`,
		PostcodeSuggestion: `.autocomplete-suggestions li:first-child`,
		ReadCatalogue:      `a.read-catalogue-button`,
		CategoryMenu:       `#catalogue-menu`,
		CategoryLinks:      `#catalogue-menu a.category-link`,
		NextPage:           `a.pagination-next`,
	}
}

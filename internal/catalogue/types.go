// Package catalogue defines core types shared across subsystems.
package catalogue

import "time"

// FieldNA is the placeholder stored for any product field the extractor
// could not read. Rows are schema-stable: every field is present.
const FieldNA = "NA"

// ProductRecord is one scraped catalogue listing. All fields are raw display
// strings; prices are never parsed at this layer.
type ProductRecord struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	RegularPrice    string `json:"regular_price"`
	SalePrice       string `json:"sale_price"`
	Saving          string `json:"saving"`
	OptionSuffix    string `json:"option_suffix"`
	ComparativeText string `json:"comparative_text"`
	SaleOption      string `json:"sale_option"`
	OfferValidText  string `json:"offer_valid_text"`
}

// CategoryResult accumulates the records extracted from one category plus
// the number of pagination advances consumed getting them.
type CategoryResult struct {
	Records       []ProductRecord
	PagesAdvanced int
}

// Row is the normalized shape persisted by the store writer, keyed by
// (postcode, category, product).
type Row struct {
	ProductKey      string `json:"product_key"`
	Postcode        string `json:"postcode"`
	Category        string `json:"category"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	RegularPrice    string `json:"regular_price"`
	SalePrice       string `json:"sale_price"`
	Saving          string `json:"saving"`
	OptionSuffix    string `json:"option_suffix"`
	ComparativeText string `json:"comparative_text"`
	SaleOption      string `json:"sale_option"`
	OfferValidText  string `json:"offer_valid_text"`
}

// ScanJob is one postcode's scrape, queued for a worker.
type ScanJob struct {
	Postcode  string
	Attempt   int
	Submitted time.Time
}

// ScanSummary is published after a postcode scan finishes.
type ScanSummary struct {
	Postcode   string    `json:"postcode"`
	Categories int       `json:"categories"`
	Products   int       `json:"products"`
	Failed     int       `json:"failed_categories"`
	FinishedAt time.Time `json:"finished_at"`
}

// ChangeOp is the operation kind carried by a change feed event.
type ChangeOp string

// Change feed operation kinds. Only inserts trigger scraping.
const (
	OpInsert ChangeOp = "INSERT"
	OpModify ChangeOp = "MODIFY"
	OpRemove ChangeOp = "REMOVE"
)

// ChangeEvent is one entry from the request store's change feed.
type ChangeEvent struct {
	Op       ChangeOp    `json:"op"`
	NewValue ChangeValue `json:"new_value"`
}

// ChangeValue is the new-image payload of a change event.
type ChangeValue struct {
	Postcode string `json:"postcode"`
}

// Request is a user-submitted scrape request.
type Request struct {
	RequestID   string    `json:"RequestID"`
	Postcode    string    `json:"Postcode"`
	ProductName string    `json:"ProductName"`
	Discount    float64   `json:"Discount"`
	PhoneNumber string    `json:"PhoneNumber"`
	SubmittedAt time.Time `json:"SubmittedAt"`
}

// RequestUpdate carries the mutable request fields; nil means "leave as is".
type RequestUpdate struct {
	ProductName *string
	Discount    *float64
	PhoneNumber *string
}

// NormalizeRow builds the persisted row for one record. The product key
// falls back from the explicit identifier to the product name to "Unknown"
// so the row is always addressable.
func NormalizeRow(postcode, category string, rec ProductRecord) Row {
	key := rec.ProductID
	if key == "" || key == FieldNA {
		key = rec.Name
	}
	if key == "" || key == FieldNA {
		key = "Unknown"
	}
	return Row{
		ProductKey:      key,
		Postcode:        postcode,
		Category:        category,
		Name:            rec.Name,
		Price:           rec.Price,
		RegularPrice:    rec.RegularPrice,
		SalePrice:       rec.SalePrice,
		Saving:          rec.Saving,
		OptionSuffix:    rec.OptionSuffix,
		ComparativeText: rec.ComparativeText,
		SaleOption:      rec.SaleOption,
		OfferValidText:  rec.OfferValidText,
	}
}

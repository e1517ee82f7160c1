package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/krishnaw/dealsearch/internal/observability"
)

// This is the external-collaborator boundary spec.md §6 describes:
// "Record-set construction deserializes two JSON documents... the core
// consumes only the flattened record set." The core retrieval pipeline
// never imports this file's types; Engine callers build a RecordSet once
// at startup and hand it to the engine.

var log = observability.Logger("record")

// dealsDocument mirrors the shape of deals.json.
type dealsDocument struct {
	Deals []dealEntry `json:"deals"`
}

type dealEntry struct {
	OfferID     string `json:"offerId"`
	Name        string `json:"name"`
	OfferPrice  string `json:"offerPrice"`
	Description string `json:"description"`
	Category    string `json:"category"`
	OfferPgm    string `json:"offerPgm"`
	Image       string `json:"image"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// qualifyingProductsDocument mirrors the shape of qualifying-products.json.
type qualifyingProductsDocument struct {
	Offers []productOfferEntry `json:"offers"`
}

type productOfferEntry struct {
	OfferID  string        `json:"offerId"`
	Products []productEntry `json:"products"`
}

type productEntry struct {
	Name               string  `json:"name"`
	UPC                string  `json:"upc"`
	Price              float64 `json:"price"`
	ImageURL           string  `json:"imageUrl"`
	DepartmentName     string  `json:"departmentName"`
	ShelfName          string  `json:"shelfName"`
	AisleLocation      string  `json:"aisleLocation"`
	DispItemSizeQty    string  `json:"dispItemSizeQty"`
	DispUnitOfMeasure  string  `json:"dispUnitOfMeasure"`
}

// LoadRecordSet reads deals.json and qualifying-products.json from disk,
// flattens them into a RecordSet and returns the SHA-256 content hash of
// the two source files (for cache-validity checks — see
// internal/cache and SPEC_FULL.md Part D.4).
func LoadRecordSet(dealsPath, productsPath string) (*RecordSet, string, error) {
	dealsBytes, err := os.ReadFile(dealsPath)
	if err != nil {
		return nil, "", fmt.Errorf("record: reading deals document: %w", err)
	}
	productsBytes, err := os.ReadFile(productsPath)
	if err != nil {
		return nil, "", fmt.Errorf("record: reading qualifying-products document: %w", err)
	}

	var deals dealsDocument
	if err := json.Unmarshal(dealsBytes, &deals); err != nil {
		return nil, "", fmt.Errorf("record: parsing deals document: %w", err)
	}
	var products qualifyingProductsDocument
	if err := json.Unmarshal(productsBytes, &products); err != nil {
		return nil, "", fmt.Errorf("record: parsing qualifying-products document: %w", err)
	}

	rs, err := BuildRecords(deals, products)
	if err != nil {
		return nil, "", err
	}

	hash := contentHash(dealsBytes, productsBytes)
	log.Info().Int("records", len(rs.Records)).Str("content_hash", hash).Msg("record set built")

	return rs, hash, nil
}

// BuildRecords flattens parsed documents into a RecordSet. Kept apart
// from LoadRecordSet so code in this package (and its tests) that already
// has the documents in memory can skip the disk round-trip; its parameter
// types are unexported, so other packages go through LoadRecordSet.
func BuildRecords(deals dealsDocument, products qualifyingProductsDocument) (*RecordSet, error) {
	productLookup := make(map[string][]productEntry, len(products.Offers))
	for _, offer := range products.Offers {
		productLookup[offer.OfferID] = offer.Products
	}

	var records []*Record
	for _, deal := range deals.Deals {
		if deal.OfferID == "" {
			return nil, fmt.Errorf("record: deal with empty offerId")
		}

		prods := productLookup[deal.OfferID]
		if len(prods) == 0 {
			records = append(records, newOfferOnlyRecord(deal))
			continue
		}
		for _, p := range prods {
			records = append(records, newOfferProductRecord(deal, p))
		}
	}

	return NewRecordSet(records), nil
}

func newOfferOnlyRecord(d dealEntry) *Record {
	return &Record{
		OfferID:          d.OfferID,
		OfferName:        d.Name,
		OfferPrice:       d.OfferPrice,
		OfferDescription: d.Description,
		OfferCategory:    d.Category,
		OfferProgram:     d.OfferPgm,
		ImageURL:         d.Image,
		EndDate:          d.EndDate,
	}
}

func newOfferProductRecord(d dealEntry, p productEntry) *Record {
	return &Record{
		OfferID:           d.OfferID,
		OfferName:         d.Name,
		OfferPrice:        d.OfferPrice,
		OfferDescription:  d.Description,
		OfferCategory:     d.Category,
		OfferProgram:      d.OfferPgm,
		ImageURL:          firstNonEmpty(p.ImageURL, d.Image),
		ProductName:       p.Name,
		ProductUPC:        p.UPC,
		ProductPrice:      p.Price,
		ProductDepartment: p.DepartmentName,
		ProductShelf:      p.ShelfName,
		ProductAisle:      p.AisleLocation,
		ProductSize:       joinSize(p.DispItemSizeQty, p.DispUnitOfMeasure),
		EndDate:           d.EndDate,
	}
}

func joinSize(qty, unit string) string {
	switch {
	case qty != "" && unit != "":
		return qty + " " + unit
	case qty != "":
		return qty
	default:
		return unit
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func contentHash(blobs ...[]byte) string {
	h := sha256.New()
	for _, b := range blobs {
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

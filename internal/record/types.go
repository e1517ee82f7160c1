// Package record defines the flattened offer/product search record, the
// immutable record set built from it, and the derived corpus index the
// retrievers scan.
package record

import "strings"

// Record is one searchable row: an offer joined with at most one of its
// qualifying products, or — when an offer has no qualifying products at
// all — the offer alone.
//
// Every lowercase projection is computed once, at record-set build time,
// so retrievers never re-lowercase the same string on every query.
type Record struct {
	// Offer facets.
	OfferID          string
	OfferName        string
	OfferPrice       string
	OfferDescription string
	OfferCategory    string
	OfferProgram     string
	ImageURL         string
	// EndDate is the offer's expiry timestamp as supplied by the source
	// feed: epoch milliseconds encoded as a decimal string, or empty when
	// the offer carries no expiry. Not parsed at ingestion time since only
	// the MCP tool wrapper's expiry filter (spec.md §4.6.2) ever reads it.
	EndDate string

	// Product facets. Empty when this is an offer-only record.
	ProductName       string
	ProductUPC        string
	ProductPrice      float64
	ProductDepartment string
	ProductShelf      string
	ProductAisle      string
	ProductSize       string

	// SearchText is the space-joined, non-empty concatenation of
	// OfferName, ProductName, OfferDescription, ProductDepartment,
	// ProductShelf, OfferCategory, in that order.
	SearchText string

	// Lowercase projections, populated once by prepareForSearch.
	searchTextLower       string
	offerNameLower        string
	productNameLower      string
	offerDescriptionLower string
	offerCategoryLower    string
	productDepartmentLower string
	productShelfLower     string
}

// SearchTextLower returns the cached lowercase search text.
func (r *Record) SearchTextLower() string { return r.searchTextLower }

// OfferNameLower returns the cached lowercase offer name.
func (r *Record) OfferNameLower() string { return r.offerNameLower }

// ProductNameLower returns the cached lowercase product name.
func (r *Record) ProductNameLower() string { return r.productNameLower }

func buildSearchText(offerName, productName, offerDescription, productDepartment, productShelf, offerCategory string) string {
	parts := []string{offerName, productName, offerDescription, productDepartment, productShelf, offerCategory}
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// prepareForSearch fills the record's derived fields. Called once per
// record at construction time, never again.
func (r *Record) prepareForSearch() {
	r.SearchText = buildSearchText(r.OfferName, r.ProductName, r.OfferDescription, r.ProductDepartment, r.ProductShelf, r.OfferCategory)
	r.searchTextLower = foldLower(r.SearchText)
	r.offerNameLower = foldLower(r.OfferName)
	r.productNameLower = foldLower(r.ProductName)
	r.offerDescriptionLower = foldLower(r.OfferDescription)
	r.offerCategoryLower = foldLower(r.OfferCategory)
	r.productDepartmentLower = foldLower(r.ProductDepartment)
	r.productShelfLower = foldLower(r.ProductShelf)
}

// FieldLower returns the cached lowercase projection of one of the
// weighted search fields, used by the keyword retriever.
func (r *Record) FieldLower(field Field) string {
	switch field {
	case FieldOfferName:
		return r.offerNameLower
	case FieldProductName:
		return r.productNameLower
	case FieldOfferDescription:
		return r.offerDescriptionLower
	case FieldOfferCategory:
		return r.offerCategoryLower
	case FieldProductDepartment:
		return r.productDepartmentLower
	case FieldProductShelf:
		return r.productShelfLower
	default:
		return ""
	}
}

// Field identifies one of the weighted search fields from spec.md §4.1.
type Field int

const (
	FieldOfferName Field = iota
	FieldProductName
	FieldOfferDescription
	FieldOfferCategory
	FieldProductDepartment
	FieldProductShelf
)

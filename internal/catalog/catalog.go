// Package catalog describes the remote product catalog the picker searches:
// products, their variants, and the Searcher capability that fetches them
// page by page.
package catalog

import (
	"bytes"
	"strconv"
	"strings"
)

// ProductID identifies a product. It is unique across the catalog.
type ProductID int64

// VariantID identifies a variant. It is only unique within its product.
type VariantID int64

// Product is a catalog entry as returned by a search. Products are treated
// as immutable once fetched.
type Product struct {
	ID       ProductID `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Image    *Image    `json:"image,omitempty" yaml:"image,omitempty"`
	Variants []Variant `json:"variants" yaml:"-"`
}

// Image is the optional product thumbnail.
type Image struct {
	ID        int64     `json:"id" yaml:"id"`
	ProductID ProductID `json:"product_id" yaml:"product_id"`
	Src       string    `json:"src" yaml:"src"`
}

// Variant is one purchasable option of a product.
type Variant struct {
	ID        VariantID `json:"id" yaml:"id"`
	ProductID ProductID `json:"product_id" yaml:"product_id"`
	Title     string    `json:"title" yaml:"title"`
	SKU       string    `json:"sku" yaml:"sku"`
	Price     Price     `json:"price" yaml:"price"`
}

// ImageSrc returns the thumbnail URL, or "" when the product has no image.
func (p Product) ImageSrc() string {
	if p.Image == nil {
		return ""
	}
	return p.Image.Src
}

// Variant looks up a variant of p by id.
func (p Product) Variant(id VariantID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Price is a variant price. The catalog API sends prices as JSON strings
// ("49.99"); plain numbers are accepted too. Anything unparseable decodes
// as zero rather than failing the whole page.
type Price float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*p = 0
		return nil
	}
	*p = Price(f)
	return nil
}

// String formats the price with two decimals.
func (p Price) String() string {
	return strconv.FormatFloat(float64(p), 'f', 2, 64)
}

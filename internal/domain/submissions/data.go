package submissions

import (
	"fmt"
	"net/url"
	"strings"
)

// Data is the structured submission_data blob.
type Data struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Medium          string   `json:"medium"`
	Year            string   `json:"year,omitempty"`
	Dimensions      string   `json:"dimensions,omitempty"`
	ArtistStatement string   `json:"artist_statement,omitempty"`
	ImageURLs       []string `json:"image_urls"`
	ExternalLinks   []string `json:"external_links,omitempty"`
}

// Normalized trims every field and drops blank list entries, keeping order.
func (d Data) Normalized() Data {
	return Data{
		Title:           strings.TrimSpace(d.Title),
		Description:     strings.TrimSpace(d.Description),
		Medium:          strings.TrimSpace(d.Medium),
		Year:            strings.TrimSpace(d.Year),
		Dimensions:      strings.TrimSpace(d.Dimensions),
		ArtistStatement: strings.TrimSpace(d.ArtistStatement),
		ImageURLs:       compact(d.ImageURLs),
		ExternalLinks:   compact(d.ExternalLinks),
	}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate reports every missing required field and every malformed link,
// in form order.
func (d Data) Validate() []FieldError {
	n := d.Normalized()
	var errs []FieldError
	if n.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}
	if n.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "description is required"})
	}
	if n.Medium == "" {
		errs = append(errs, FieldError{Field: "medium", Message: "medium is required"})
	}
	if len(n.ImageURLs) == 0 {
		errs = append(errs, FieldError{Field: "image_urls", Message: "at least one image is required"})
	}
	errs = append(errs, linkErrors("image_urls", n.ImageURLs)...)
	errs = append(errs, linkErrors("external_links", n.ExternalLinks)...)
	return errs
}

func linkErrors(field string, links []string) []FieldError {
	var errs []FieldError
	for i, raw := range links {
		if !isWebURL(raw) {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("entry %d must be an absolute http or https URL", i+1),
			})
		}
	}
	return errs
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

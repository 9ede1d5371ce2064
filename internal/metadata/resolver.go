// Package metadata embeds descriptive tags into extracted images.
package metadata

import (
	"fmt"
	"strings"

	"github.com/spherical/image-extractor/internal/domain"
)

// ResolveField combines an auto-generated value with the field's custom text.
// The auto value only counts when document-name inclusion is enabled. An empty
// result means the field is omitted.
func ResolveField(cfg domain.FieldConfig, auto string) string {
	if !cfg.Enabled {
		return ""
	}
	if !cfg.IncludeDocumentName {
		auto = ""
	}
	custom := strings.TrimSpace(cfg.CustomText)

	switch {
	case auto == "" && custom == "":
		return ""
	case auto == "":
		return custom
	case custom == "":
		return auto
	case cfg.Placement == domain.PlacementAppend:
		return auto + " " + custom
	default:
		return custom + " " + auto
	}
}

// ResolveKeywords splits custom text on commas and semicolons and merges the
// document name in as one more token when inclusion is enabled.
func ResolveKeywords(cfg domain.FieldConfig, docName string) []string {
	if !cfg.Enabled {
		return nil
	}
	custom := splitKeywords(cfg.CustomText)
	if !cfg.IncludeDocumentName || docName == "" {
		return custom
	}

	out := make([]string, 0, len(custom)+1)
	if cfg.Placement == domain.PlacementAppend {
		out = append(out, docName)
		return append(out, custom...)
	}
	out = append(out, custom...)
	return append(out, docName)
}

func splitKeywords(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ';' })
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExtendedDescriptionAuto builds the accessibility text for one image.
func ExtendedDescriptionAuto(docName string, page int, hasPage bool) string {
	if hasPage {
		return fmt.Sprintf("File name: %s, Page: %d", docName, page)
	}
	return fmt.Sprintf("File name: %s", docName)
}

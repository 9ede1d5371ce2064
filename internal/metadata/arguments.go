package metadata

import (
	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/naming"
)

// OverwriteFlag makes the tagging tool edit files in place without backups.
const OverwriteFlag = "-overwrite_original"

// tagSpec maps a field to its modern (XMP) tag and optional legacy (IPTC) tag.
type tagSpec struct {
	modern string
	legacy string
}

var fieldTags = map[domain.FieldName]tagSpec{
	domain.FieldHeading:             {modern: "XMP-photoshop:Headline", legacy: "IPTC:Headline"},
	domain.FieldDescription:         {modern: "XMP-dc:Description", legacy: "IPTC:Caption-Abstract"},
	domain.FieldCopyright:           {modern: "XMP-dc:Rights", legacy: "IPTC:CopyrightNotice"},
	domain.FieldKeywords:            {modern: "XMP-dc:Subject", legacy: "IPTC:Keywords"},
	domain.FieldExtendedDescription: {modern: "XMP-iptcCore:ExtDescrAccessibility"},
}

// FileContext carries the per-file inputs to argument building.
type FileContext struct {
	Path    string
	DocName string
	Page    int
	HasPage bool
}

// NewFileContext derives the page number from the canonical file name.
func NewFileContext(path, docName string) FileContext {
	page, ok := naming.ParsePageNumber(path)
	return FileContext{Path: path, DocName: docName, Page: page, HasPage: ok}
}

// BuildArguments returns the tagging tool arguments for one file, or nil when
// no field resolves to a value.
func BuildArguments(cfg domain.MetadataConfiguration, fc FileContext) []string {
	legacy := naming.Extension(fc.Path) != domain.FormatJPEGXL.FileExtension()
	tags := make([]string, 0, 8)

	for _, name := range domain.FieldNames {
		field := cfg.Field(name)
		spec := fieldTags[name]

		if name == domain.FieldKeywords {
			keywords := ResolveKeywords(field, fc.DocName)
			if len(keywords) == 0 {
				continue
			}
			tags = append(tags, assign(spec.modern, ""))
			if legacy {
				tags = append(tags, assign(spec.legacy, ""))
			}
			for _, kw := range keywords {
				tags = append(tags, add(spec.modern, kw))
				if legacy {
					tags = append(tags, add(spec.legacy, kw))
				}
			}
			continue
		}

		auto := fc.DocName
		if name == domain.FieldExtendedDescription {
			auto = ExtendedDescriptionAuto(fc.DocName, fc.Page, fc.HasPage)
		}
		value := ResolveField(field, auto)
		if value == "" {
			continue
		}
		tags = append(tags, assign(spec.modern, value))
		if legacy && spec.legacy != "" {
			tags = append(tags, assign(spec.legacy, value))
		}
	}

	if len(tags) == 0 {
		return nil
	}

	args := make([]string, 0, len(tags)+2)
	args = append(args, OverwriteFlag)
	args = append(args, tags...)
	return append(args, fc.Path)
}

func assign(tag, value string) string {
	return "-" + tag + "=" + value
}

func add(tag, value string) string {
	return "-" + tag + "+=" + value
}

package processor

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/blacktop/xface/internal/xface"
)

// Requirement states whether a content kind must, may or must not appear.
type Requirement int

const (
	Forbidden Requirement = iota
	Optional
	Required
)

func (r Requirement) String() string {
	switch r {
	case Forbidden:
		return "forbidden"
	case Optional:
		return "optional"
	case Required:
		return "required"
	}
	return "unknown"
}

// Variant is the static rule descriptor of a post type.
type Variant struct {
	Category string
	Title    string
	Text     Requirement
	Image    Requirement
	// AtLeastOne demands text or image when both are optional.
	AtLeastOne bool
}

var (
	TextOnly              = Variant{Category: "text-only", Title: "TextOnlyPost", Text: Required, Image: Forbidden}
	ImageOnly             = Variant{Category: "image-only", Title: "ImageOnlyPost", Text: Forbidden, Image: Required}
	TextAndImage          = Variant{Category: "text-and-image", Title: "TextAndImagePost", Text: Required, Image: Required}
	TextOrImage           = Variant{Category: "text-or-image", Title: "TextOrImagePost", Text: Optional, Image: Optional, AtLeastOne: true}
	TextWithOptionalImage = Variant{Category: "text-with-optional-image", Title: "TextWithOptionalImagePost", Text: Required, Image: Optional}
	ImageWithOptionalText = Variant{Category: "image-with-optional-text", Title: "ImageWithOptionalTextPost", Text: Optional, Image: Required}
)

// Variants lists every supported post type.
var Variants = []Variant{
	TextOnly,
	ImageOnly,
	TextAndImage,
	TextOrImage,
	TextWithOptionalImage,
	ImageWithOptionalText,
}

// Check returns a ValidationError for the first rule post breaks.
func (v Variant) Check(post xface.PostData) error {
	hasText, hasImage := post.Text != nil, post.Image != nil

	var reason string
	switch {
	case v.Text == Required && !hasText:
		reason = "text is required"
	case v.Text == Forbidden && hasText:
		reason = "text is not allowed"
	case v.Image == Required && !hasImage:
		reason = "image is required"
	case v.Image == Forbidden && hasImage:
		reason = "image is not allowed"
	case v.AtLeastOne && !hasText && !hasImage:
		reason = "text or image is required"
	default:
		return nil
	}
	return xface.ValidationError{PostType: v.Category, Reason: reason}
}

// Schema builds the JSON schema of the variant payload. Forbidden fields are
// left out of the properties, and no other properties are accepted.
func (v Variant) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Title:                v.Title,
		Type:                 "object",
		Properties:           map[string]*jsonschema.Schema{},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}

	if v.Text != Forbidden {
		schema.Properties[xface.KeyText] = textSchema()
	}
	if v.Text == Required {
		schema.Required = append(schema.Required, xface.KeyText)
	}
	if v.Image != Forbidden {
		schema.Properties[xface.KeyImage] = imageSchema()
	}
	if v.Image == Required {
		schema.Required = append(schema.Required, xface.KeyImage)
	}
	if v.AtLeastOne {
		schema.AnyOf = []*jsonschema.Schema{
			{Required: []string{xface.KeyText}},
			{Required: []string{xface.KeyImage}},
		}
	}
	return schema
}

func textSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Title: "TextData",
		Type:  "object",
		Properties: map[string]*jsonschema.Schema{
			xface.KeyContent: {Type: "string"},
		},
		Required: []string{xface.KeyContent},
	}
}

func imageSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Title: "ImageData",
		Type:  "object",
		Properties: map[string]*jsonschema.Schema{
			xface.KeyRaw:      {Type: "string", ContentEncoding: "base64url"},
			xface.KeyFilename: {Type: "string"},
		},
		Required: []string{xface.KeyRaw, xface.KeyFilename},
	}
}

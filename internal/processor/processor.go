// Package processor converts between PostData and platform payloads for the
// six supported post types, enforcing which text/image combinations are legal.
package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/blacktop/xface/internal/registry"
	"github.com/blacktop/xface/internal/xface"
)

// Processor validates and converts posts of one post type.
type Processor interface {
	Category() string
	Schema() *jsonschema.Schema
	Validate(payload xface.Payload) error
	ToExternal(post xface.PostData) (xface.Payload, error)
	FromExternal(payload xface.Payload) (xface.PostData, error)
	ToInternal(ctx context.Context, msg *xface.Message) (xface.PostData, error)
}

// Registry holds a processor for every post type.
var Registry = registry.New[Processor]("processor")

func init() {
	for _, v := range Variants {
		Registry.Register(v.Category, func(params registry.Params) (Processor, error) {
			if len(params) > 0 {
				return nil, fmt.Errorf("%s processor takes no params", v.Category)
			}
			return New(v), nil
		})
	}
}

// Shape is the Processor for one Variant.
type Shape struct {
	variant  Variant
	resolved func() (*jsonschema.Resolved, error)
}

// New returns the processor for v.
func New(v Variant) *Shape {
	return &Shape{
		variant: v,
		resolved: sync.OnceValues(func() (*jsonschema.Resolved, error) {
			return v.Schema().Resolve(nil)
		}),
	}
}

// Category returns the post type name.
func (s *Shape) Category() string { return s.variant.Category }

// Schema returns the JSON schema of the post type payload.
func (s *Shape) Schema() *jsonschema.Schema { return s.variant.Schema() }

// Validate checks payload against the post type schema.
func (s *Shape) Validate(payload xface.Payload) error {
	resolved, err := s.resolved()
	if err != nil {
		return fmt.Errorf("resolve %s schema: %w", s.variant.Category, err)
	}
	if err := resolved.Validate(map[string]any(payload)); err != nil {
		return xface.ValidationError{PostType: s.variant.Category, Reason: err.Error()}
	}
	return nil
}

// ToExternal checks post against the post type rules and encodes it.
func (s *Shape) ToExternal(post xface.PostData) (xface.Payload, error) {
	if err := s.variant.Check(post); err != nil {
		return nil, err
	}
	return xface.EncodePost(post), nil
}

// FromExternal decodes a payload. Fields the post type forbids are dropped;
// missing required fields are not an error.
func (s *Shape) FromExternal(payload xface.Payload) (xface.PostData, error) {
	var post xface.PostData

	if s.variant.Text != Forbidden {
		text, ok, err := payload.DecodeText()
		if err != nil {
			return xface.PostData{}, err
		}
		if ok {
			post.Text = &text
		}
	}

	if s.variant.Image != Forbidden {
		image, ok, err := payload.DecodeImage()
		if err != nil {
			return xface.PostData{}, err
		}
		if ok {
			post.Image = &image
		}
	}

	return post, nil
}

// ToInternal converts a platform message. Text comes from the message
// content, the image from the first attachment.
func (s *Shape) ToInternal(ctx context.Context, msg *xface.Message) (xface.PostData, error) {
	var post xface.PostData

	if s.variant.Text != Forbidden && msg.Content != nil {
		post.Text = &xface.TextContent{Content: *msg.Content}
	}

	if s.variant.Image != Forbidden && len(msg.Attachments) > 0 {
		attachment := msg.Attachments[0]
		data, err := attachment.Read(ctx)
		if err != nil {
			return xface.PostData{}, xface.ConversionError{MessageID: msg.ID, Err: err}
		}
		post.Image = &xface.ImageContent{Raw: data, Filename: attachment.Filename()}
	}

	return post, nil
}

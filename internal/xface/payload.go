package xface

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Payload keys.
const (
	KeyText     = "text"
	KeyImage    = "image"
	KeyContent  = "content"
	KeyRaw      = "raw"
	KeyFilename = "filename"
)

// Payload is the wire form of a post. Image bytes travel base64url encoded.
type Payload map[string]any

// EncodeText returns the payload field for a text.
func EncodeText(text TextContent) map[string]any {
	return map[string]any{KeyContent: text.Content}
}

// EncodeImage returns the payload field for an image.
func EncodeImage(image ImageContent) map[string]any {
	return map[string]any{
		KeyRaw:      base64.URLEncoding.EncodeToString(image.Raw),
		KeyFilename: image.Filename,
	}
}

// EncodePost returns the payload of post. Absent fields stay absent.
func EncodePost(post PostData) Payload {
	payload := Payload{}
	if post.Text != nil {
		payload[KeyText] = EncodeText(*post.Text)
	}
	if post.Image != nil {
		payload[KeyImage] = EncodeImage(*post.Image)
	}
	return payload
}

// DecodeText reads the text field of the payload; ok is false when absent.
func (p Payload) DecodeText() (text TextContent, ok bool, err error) {
	v, present := p[KeyText]
	if !present || v == nil {
		return TextContent{}, false, nil
	}
	fields, isMap := v.(map[string]any)
	if !isMap {
		return TextContent{}, false, fmt.Errorf("payload %s: unexpected %T", KeyText, v)
	}
	content, isString := fields[KeyContent].(string)
	if !isString {
		return TextContent{}, false, fmt.Errorf("payload %s.%s: not a string", KeyText, KeyContent)
	}
	return TextContent{Content: content}, true, nil
}

// DecodeImage reads the image field of the payload; ok is false when absent.
func (p Payload) DecodeImage() (image ImageContent, ok bool, err error) {
	v, present := p[KeyImage]
	if !present || v == nil {
		return ImageContent{}, false, nil
	}
	fields, isMap := v.(map[string]any)
	if !isMap {
		return ImageContent{}, false, fmt.Errorf("payload %s: unexpected %T", KeyImage, v)
	}
	raw, isString := fields[KeyRaw].(string)
	if !isString {
		return ImageContent{}, false, fmt.Errorf("payload %s.%s: not a string", KeyImage, KeyRaw)
	}
	filename, _ := fields[KeyFilename].(string)
	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return ImageContent{}, false, fmt.Errorf("payload %s.%s: %w", KeyImage, KeyRaw, err)
	}
	return ImageContent{Raw: data, Filename: filename}, true, nil
}

// Draft turns the payload into an outgoing message.
func (p Payload) Draft() (Draft, error) {
	var d Draft

	text, hasText, err := p.DecodeText()
	if err != nil {
		return Draft{}, err
	}
	if hasText {
		d.Content = text.Content
	}

	image, hasImage, err := p.DecodeImage()
	if err != nil {
		return Draft{}, err
	}
	if hasImage {
		d.Files = append(d.Files, File{Name: image.Filename, Data: image.Raw})
	}

	if !hasText && !hasImage {
		return Draft{}, errors.New("payload carries neither text nor image")
	}
	return d, nil
}

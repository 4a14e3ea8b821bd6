package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ImagesEmbedType is the record form of an image gallery embed.
const ImagesEmbedType = "app.bsky.embed.images"

// Embed is the content attached to a post record: either an *ImageGallery or
// an *OtherEmbed carrying any type this service does not edit.
type Embed interface {
	EmbedType() string
}

// PostRecord is a post record value. Fields other than the embed are kept
// verbatim so a read-modify-write cycle leaves them untouched.
type PostRecord struct {
	// CID of the version that was read; used to guard the write.
	CID   string
	Embed Embed

	fields map[string]json.RawMessage
}

func (r *PostRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if fields == nil {
		return errors.New("decode record: value is null")
	}

	r.fields = fields
	r.Embed = nil

	raw, ok := fields["embed"]
	if !ok || isNull(raw) {
		return nil
	}
	embed, err := decodeEmbed(raw)
	if err != nil {
		return err
	}
	r.Embed = embed
	return nil
}

func (r PostRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}
	delete(out, "embed")
	if r.Embed != nil {
		raw, err := json.Marshal(r.Embed)
		if err != nil {
			return nil, fmt.Errorf("encode embed: %w", err)
		}
		out["embed"] = raw
	}
	return json.Marshal(out)
}

func decodeEmbed(raw json.RawMessage) (Embed, error) {
	var head struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode embed: %w", err)
	}
	if head.Type != ImagesEmbedType {
		return &OtherEmbed{Type: head.Type, raw: append(json.RawMessage(nil), raw...)}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode embed: %w", err)
	}
	gallery := &ImageGallery{fields: fields}
	if imgs, ok := fields["images"]; ok && !isNull(imgs) {
		if err := json.Unmarshal(imgs, &gallery.Images); err != nil {
			return nil, fmt.Errorf("decode embed images: %w", err)
		}
	}
	return gallery, nil
}

// ImageGallery is an app.bsky.embed.images embed. Images are in display order.
type ImageGallery struct {
	Images []GalleryImage

	fields map[string]json.RawMessage
}

// NewImageGallery builds a gallery whose images carry only the given alt-texts.
func NewImageGallery(alts ...string) *ImageGallery {
	g := &ImageGallery{Images: make([]GalleryImage, len(alts))}
	for i, alt := range alts {
		g.Images[i].SetAlt(alt)
	}
	return g
}

func (*ImageGallery) EmbedType() string { return ImagesEmbedType }

func (g *ImageGallery) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(g.fields)+2)
	for k, v := range g.fields {
		out[k] = v
	}
	out["$type"] = json.RawMessage(`"` + ImagesEmbedType + `"`)

	images := g.Images
	if images == nil {
		images = []GalleryImage{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	out["images"] = raw
	return json.Marshal(out)
}

// GalleryImage is one image slot. Only the alt-text is addressable; the blob
// reference and aspect ratio pass through unchanged.
type GalleryImage struct {
	alt    string
	fields map[string]json.RawMessage
}

// Alt returns the slot's alt-text, or "" when unset.
func (g GalleryImage) Alt() string { return g.alt }

func (g *GalleryImage) SetAlt(alt string) {
	if g.fields == nil {
		g.fields = make(map[string]json.RawMessage, 1)
	}
	raw, _ := json.Marshal(alt)
	g.alt = alt
	g.fields["alt"] = raw
}

// UnmarshalJSON rejects an alt that is present but not a string, so a
// malformed slot fails the record decode instead of reading as unset.
func (g *GalleryImage) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	var alt string
	if raw, ok := fields["alt"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &alt); err != nil {
			return fmt.Errorf("decode image alt: %w", err)
		}
	}
	g.alt = alt
	g.fields = fields
	return nil
}

func (g GalleryImage) MarshalJSON() ([]byte, error) {
	if g.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(g.fields)
}

// OtherEmbed is any embed type other than an image gallery, kept raw.
type OtherEmbed struct {
	Type string

	raw json.RawMessage
}

func (e *OtherEmbed) EmbedType() string { return e.Type }

func (e *OtherEmbed) MarshalJSON() ([]byte, error) {
	if len(e.raw) == 0 {
		return json.Marshal(map[string]string{"$type": e.Type})
	}
	return e.raw, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

package adapter

import "strings"

const dataImagePrefix = "data:image"

// ConvertImage maps an image_url part to the provider's image block.
// The boolean is false when the part has no usable URL; callers drop such parts.
func ConvertImage(part ContentPart) (ProviderMessage, bool) {
	if part.ImageURL == nil || part.ImageURL.URL == "" {
		return ProviderMessage{}, false
	}
	url := part.ImageURL.URL

	if !strings.HasPrefix(url, dataImagePrefix) {
		return ProviderMessage{
			Type:   "image",
			Source: &ImageSource{Type: "url", URL: url},
		}, true
	}

	// data:image/png;base64,<payload>
	header, payload, ok := strings.Cut(url, ",")
	if !ok {
		return ProviderMessage{}, false
	}
	_, mediaType, ok := strings.Cut(header, ":")
	if !ok {
		return ProviderMessage{}, false
	}
	mediaType, _, _ = strings.Cut(mediaType, ";")

	return ProviderMessage{
		Type: "image",
		Source: &ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      payload,
		},
	}, true
}

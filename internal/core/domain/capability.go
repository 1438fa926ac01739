package domain

import "strings"

// RoutingCapability is the room's shared media-routing descriptor,
// returned on join. The coordinator treats it as opaque; the media
// layer matches it against the local engine.
type RoutingCapability struct {
	Codecs []CodecCapability `json:"codecs"`
}

type CodecCapability struct {
	MimeType  string    `json:"mime_type"`
	Kind      MediaKind `json:"kind"`
	ClockRate uint32    `json:"clock_rate"`
	Channels  uint16    `json:"channels,omitempty"`
}

// SupportsKind reports whether the capability carries at least one
// codec for the given kind.
func (c RoutingCapability) SupportsKind(kind MediaKind) bool {
	for _, codec := range c.Codecs {
		if codec.Kind == kind {
			return true
		}
	}
	return false
}

// CanConsume reports whether a local capability can decode a producer
// announced with the given kind and mime type.
func (c RoutingCapability) CanConsume(kind MediaKind, mimeType string) bool {
	for _, codec := range c.Codecs {
		if codec.Kind == kind && strings.EqualFold(codec.MimeType, mimeType) {
			return true
		}
	}
	return false
}

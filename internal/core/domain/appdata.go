package domain

// MediaSource identifies what a producer captures. It is the tag of the
// AppData variant: consumers switch on it and must treat unrecognized
// values as SourceUnknown rather than fail.
type MediaSource string

const (
	SourceMicrophone MediaSource = "microphone"
	SourceCamera     MediaSource = "camera"
	SourceScreen     MediaSource = "screen"
	SourceUnknown    MediaSource = "unknown"
)

// AppData is the application metadata attached to a producer. It
// replaces the free-form metadata bag with a closed set of known
// sources plus an optional human-readable label.
type AppData struct {
	Source MediaSource `json:"source"`
	Label  string      `json:"label,omitempty"`
}

// ParseAppData normalizes raw metadata into a typed AppData, mapping
// anything unrecognized to SourceUnknown.
func ParseAppData(raw map[string]interface{}) AppData {
	out := AppData{Source: SourceUnknown}
	if raw == nil {
		return out
	}
	if s, ok := raw["source"].(string); ok {
		switch MediaSource(s) {
		case SourceMicrophone, SourceCamera, SourceScreen:
			out.Source = MediaSource(s)
		}
	}
	if l, ok := raw["label"].(string); ok {
		out.Label = l
	}
	return out
}

// DefaultAppData picks the conventional source for a media kind when a
// client supplies none.
func DefaultAppData(kind MediaKind) AppData {
	switch kind {
	case KindAudio:
		return AppData{Source: SourceMicrophone}
	case KindVideo:
		return AppData{Source: SourceCamera}
	default:
		return AppData{Source: SourceUnknown}
	}
}

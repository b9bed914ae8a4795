// Package lang holds the language model of the assistant: supported
// languages, their recognition and synthesis tags, the keyword lexicons
// the dispatcher and dialogue modules match against, and the message
// catalog for everything the assistant speaks.
package lang

// Language identifies one of the supported interface languages.
type Language string

const (
	French  Language = "fr"
	Arabic  Language = "ar"
	English Language = "en"
)

// Default is the language active before any switch command.
const Default = French

// All lists the supported languages in a stable order.
func All() []Language {
	return []Language{French, Arabic, English}
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case French, Arabic, English:
		return true
	}
	return false
}

// RecognitionTag returns the BCP-47 tag used to arm the recognizer.
func (l Language) RecognitionTag() string {
	switch l {
	case Arabic:
		return "ar-TN"
	case English:
		return "en-US"
	default:
		return "fr-FR"
	}
}

// SynthesisTag returns the BCP-47 tag requested from the synthesizer.
// Arabic synthesis voices are commonly shipped under ar-SA rather than
// ar-TN, so the two tags diverge on purpose.
func (l Language) SynthesisTag() string {
	switch l {
	case Arabic:
		return "ar-SA"
	case English:
		return "en-US"
	default:
		return "fr-FR"
	}
}

// Primary returns the primary subtag used for voice matching.
func (l Language) Primary() string {
	return string(l)
}

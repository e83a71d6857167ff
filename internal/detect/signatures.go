package detect

import (
	"regexp"
	"strings"
)

// Format names produced by classification.
const (
	FormatVHS      = "VHS"
	FormatMiniDV   = "MiniDV"
	FormatHi8      = "Hi8"
	FormatBetamax  = "Betamax"
	FormatDigital8 = "Digital8"
	FormatSuper8   = "Super8"
)

type resolution struct {
	Width  int
	Height int
}

// signature describes the technical fingerprint of one tape format. The
// fields mirror what consumer capture hardware actually produced.
type signature struct {
	Name         string
	Resolutions  []resolution
	FrameRates   []float64
	Interlaced   bool
	BitrateKbps  [2]int
	AudioStreams []int

	// Processing characteristics used to derive recommended settings.
	NoiseLevel    string
	ColorBleeding bool
	Stabilize     bool
	Sharpening    string
	MonoAudio     bool
}

// signatures is ordered; the order is the final tie-break during
// classification.
var signatures = []signature{
	{
		Name:          FormatVHS,
		Resolutions:   []resolution{{720, 480}, {720, 576}, {352, 240}, {352, 288}},
		FrameRates:    []float64{29.97, 25.00, 23.976},
		Interlaced:    true,
		BitrateKbps:   [2]int{1000, 8000},
		AudioStreams:  []int{1, 2},
		NoiseLevel:    "high",
		ColorBleeding: true,
		Stabilize:     true,
		Sharpening:    "light",
		MonoAudio:     true,
	},
	{
		Name:         FormatMiniDV,
		Resolutions:  []resolution{{720, 480}, {720, 576}},
		FrameRates:   []float64{29.97, 25.00},
		Interlaced:   true,
		BitrateKbps:  [2]int{25000, 25000},
		AudioStreams: []int{2},
		NoiseLevel:   "low",
		Sharpening:   "none",
	},
	{
		Name:          FormatHi8,
		Resolutions:   []resolution{{720, 480}, {720, 576}, {352, 240}},
		FrameRates:    []float64{29.97, 25.00},
		Interlaced:    true,
		BitrateKbps:   [2]int{2000, 10000},
		AudioStreams:  []int{1, 2},
		NoiseLevel:    "medium",
		ColorBleeding: true,
		Stabilize:     true,
		Sharpening:    "none",
		MonoAudio:     true,
	},
	{
		Name:          FormatBetamax,
		Resolutions:   []resolution{{720, 480}, {720, 576}},
		FrameRates:    []float64{29.97, 25.00},
		Interlaced:    true,
		BitrateKbps:   [2]int{3000, 12000},
		AudioStreams:  []int{1, 2},
		NoiseLevel:    "medium",
		ColorBleeding: true,
		Stabilize:     true,
		Sharpening:    "light",
		MonoAudio:     true,
	},
	{
		Name:         FormatDigital8,
		Resolutions:  []resolution{{720, 480}, {720, 576}},
		FrameRates:   []float64{29.97, 25.00},
		Interlaced:   true,
		BitrateKbps:  [2]int{25000, 25000},
		AudioStreams: []int{2},
		NoiseLevel:   "low",
		Sharpening:   "none",
	},
	{
		Name:         FormatSuper8,
		Resolutions:  []resolution{{1440, 1080}, {1920, 1080}, {720, 480}},
		FrameRates:   []float64{18.00, 24.00, 29.97},
		Interlaced:   false,
		BitrateKbps:  [2]int{5000, 20000},
		AudioStreams: []int{0, 1, 2},
		NoiseLevel:   "medium",
		Sharpening:   "none",
	},
}

var signatureIndex = func() map[string]int {
	idx := make(map[string]int, len(signatures))
	for i, sig := range signatures {
		idx[sig.Name] = i
	}
	return idx
}()

// KnownFormats returns the format names in signature order.
func KnownFormats() []string {
	names := make([]string, 0, len(signatures))
	for _, sig := range signatures {
		names = append(names, sig.Name)
	}
	return names
}

// IsKnownFormat reports whether name matches a signature (case-insensitive).
func IsKnownFormat(name string) bool {
	_, ok := lookupSignature(name)
	return ok
}

// CanonicalFormat maps a case-insensitive format name onto its signature
// name, or returns the input unchanged when unknown.
func CanonicalFormat(name string) string {
	if sig, ok := lookupSignature(name); ok {
		return sig.Name
	}
	return name
}

func lookupSignature(name string) (signature, bool) {
	trimmed := strings.TrimSpace(name)
	for _, sig := range signatures {
		if strings.EqualFold(sig.Name, trimmed) {
			return sig, true
		}
	}
	return signature{}, false
}

type filenamePattern struct {
	re     *regexp.Regexp
	format string
}

// filenamePatterns are checked in order; the first match wins. Digital8 is
// checked before Hi8 so "8mm" captures labelled digital do not land on Hi8.
var filenamePatterns = []filenamePattern{
	{regexp.MustCompile(`vhs|vcr`), FormatVHS},
	{regexp.MustCompile(`minidv|mini.?dv|dv`), FormatMiniDV},
	{regexp.MustCompile(`digital.?8|d8`), FormatDigital8},
	{regexp.MustCompile(`super.?8|s8`), FormatSuper8},
	{regexp.MustCompile(`hi.?8`), FormatHi8},
	{regexp.MustCompile(`beta(?:max)?`), FormatBetamax},
}

var plain8mm = regexp.MustCompile(`8mm`)

// FilenameHint inspects a file name for a tape format token.
func FilenameHint(name string) (string, bool) {
	lowered := strings.ToLower(name)
	for _, pattern := range filenamePatterns {
		if pattern.re.MatchString(lowered) {
			return pattern.format, true
		}
	}
	// A bare "8mm" label means Hi8 unless the name also says digital.
	if plain8mm.MatchString(lowered) && !strings.Contains(lowered, "digital") {
		return FormatHi8, true
	}
	return "", false
}

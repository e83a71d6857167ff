package detect

// Settings captures the processing knobs recommended for a tape format.
type Settings struct {
	Deinterlace      bool
	NoiseReduction   string
	ColorCorrection  bool
	Stabilization    bool
	Sharpening       string
	AudioEnhancement bool
}

// RecommendedSettings derives processing settings from the format's
// signature. Unknown formats fall back to the VHS profile, the most
// conservative cleanup path.
func RecommendedSettings(format string) Settings {
	sig, ok := lookupSignature(format)
	if !ok {
		sig, _ = lookupSignature(FormatVHS)
	}
	return Settings{
		Deinterlace:      sig.Interlaced,
		NoiseReduction:   sig.NoiseLevel,
		ColorCorrection:  sig.ColorBleeding,
		Stabilization:    sig.Stabilize,
		Sharpening:       sig.Sharpening,
		AudioEnhancement: sig.MonoAudio,
	}
}

var profileNames = map[string]string{
	FormatVHS:      "VHS_Cleanup",
	FormatMiniDV:   "MiniDV_Enhance",
	FormatHi8:      "Hi8_Restore",
	FormatBetamax:  "Betamax_Enhance",
	FormatDigital8: "Digital8_Process",
	FormatSuper8:   "Super8_FilmLook",
}

// ProfileName returns the editor processing profile for a format. Unknown
// formats get the VHS cleanup profile.
func ProfileName(format string) string {
	if name, ok := profileNames[CanonicalFormat(format)]; ok {
		return name
	}
	return profileNames[FormatVHS]
}

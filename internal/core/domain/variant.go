package domain

// Named variant presets served on the public endpoint. Dimensions match the
// sizes the frontend embeds.
const (
	VariantOriginal = "original"
	VariantPublic   = "public"
	VariantEmbed    = "embed"
	VariantThumb    = "thumb"
	VariantBanner   = "banner"
	VariantSquare   = "square"
)

// VariantSpec resolves a preset name to its transform spec. The second return
// is false for unknown names. "original" maps to the identity spec.
func VariantSpec(name string) (TransformSpec, bool) {
	switch name {
	case VariantOriginal:
		return TransformSpec{}, true
	case VariantPublic:
		return TransformSpec{Resize: &Resize{W: 1024, H: 768, Fit: FitContain}}, true
	case VariantEmbed:
		// Width-capped, height follows the aspect ratio.
		return TransformSpec{Resize: &Resize{W: 1024, Fit: FitContain}}, true
	case VariantThumb:
		return TransformSpec{Resize: &Resize{W: 256, H: 256, Fit: FitCover}}, true
	case VariantBanner:
		return TransformSpec{Resize: &Resize{W: 800, H: 400, Fit: FitCover}}, true
	case VariantSquare:
		return TransformSpec{Resize: &Resize{W: 320, H: 320, Fit: FitCover}}, true
	default:
		return TransformSpec{}, false
	}
}

// Package estimate provides heuristic token cost estimation for
// conversation content. It deliberately approximates: text is priced at
// roughly four characters per token, and images by pixel-area bucket.
package estimate

// Image cost buckets by pixel area.
const (
	smallImageArea  = 250_000
	mediumImageArea = 1_000_000

	smallImageCost  = 1000
	mediumImageCost = 2500
	largeImageCost  = 5000
)

// TextCost estimates the token cost of a text fragment as ceil(len/4).
// Empty text costs zero.
func TextCost(text string) int64 {
	if len(text) == 0 {
		return 0
	}
	return int64(len(text)+3) / 4
}

// ImageCost estimates the token cost of an image by pixel area.
// Unknown or unmeasurable dimensions fall into the medium bucket.
func ImageCost(width, height int) int64 {
	if width <= 0 || height <= 0 {
		return mediumImageCost
	}
	area := int64(width) * int64(height)
	switch {
	case area < smallImageArea:
		return smallImageCost
	case area < mediumImageArea:
		return mediumImageCost
	default:
		return largeImageCost
	}
}

package catalog

import (
	"cmp"
	"slices"
)

// Review is an immutable rating with free-text comments.
type Review struct {
	Rating   Rating `json:"rating"`
	Comments string `json:"comments"`
}

// CompareReviews orders reviews by rating, highest first.
func CompareReviews(a, b Review) int {
	return cmp.Compare(b.Rating, a.Rating)
}

// SortedReviews returns a copy of reviews in report order. The input is
// never reordered.
func SortedReviews(reviews []Review) []Review {
	out := slices.Clone(reviews)
	slices.SortStableFunc(out, CompareReviews)
	return out
}

// AggregateRating is the mean review ordinal rounded half-up, or NotRated
// when there are no reviews.
func AggregateRating(reviews []Review) Rating {
	n := len(reviews)
	if n == 0 {
		return NotRated
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating.Ordinal()
	}
	// floor(sum/n + 1/2) in integer arithmetic
	return RatingFromStars((2*sum + n) / (2 * n))
}

// Entry pairs a product with its reviews in insertion order.
type Entry struct {
	Product Product  `json:"product"`
	Reviews []Review `json:"reviews"`
}

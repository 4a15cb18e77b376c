package catalog

import "strconv"

// Rating is the closed, ordered star scale a product or review carries.
type Rating uint8

const (
	NotRated Rating = iota
	OneStar
	TwoStar
	ThreeStar
	FourStar
	FiveStar
)

var ratingStars = [...]string{"-", "*", "**", "***", "****", "*****"}

var ratingNames = [...]string{"NOT_RATED", "ONE_STAR", "TWO_STAR", "THREE_STAR", "FOUR_STAR", "FIVE_STAR"}

// RatingFromStars maps a numeric star count onto the scale.
// Anything outside 0..5 is NotRated.
func RatingFromStars(n int) Rating {
	if n < int(NotRated) || n > int(FiveStar) {
		return NotRated
	}
	return Rating(n)
}

func (r Rating) Ordinal() int { return int(r) }

func (r Rating) Valid() bool { return r <= FiveStar }

// Stars returns the display glyph, e.g. "***".
func (r Rating) Stars() string {
	if !r.Valid() {
		return ratingStars[NotRated]
	}
	return ratingStars[r]
}

func (r Rating) String() string {
	if !r.Valid() {
		return "Rating(" + strconv.Itoa(int(r)) + ")"
	}
	return ratingNames[r]
}

func (r Rating) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(r))), nil
}

func (r *Rating) UnmarshalJSON(b []byte) error {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*r = RatingFromStars(n)
	return nil
}

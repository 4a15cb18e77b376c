package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShopCatalog/internal/catalog"
)

func TestParseProduct(t *testing.T) {
	tea, err := ParseProduct("D,101,Tea,1.99,0")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindDrink, tea.Kind())
	assert.Equal(t, 101, tea.ID())
	assert.Equal(t, "Tea", tea.Name())
	assert.Equal(t, "1.99", tea.Price().StringFixed(2))
	assert.Equal(t, catalog.NotRated, tea.Rating())

	cake, err := ParseProduct("F,103,Cake,3.99,4,2026-10-20\r\n")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindFood, cake.Kind())
	assert.Equal(t, catalog.FourStar, cake.Rating())
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), cake.BestBefore(time.Now()))
}

func TestParseProduct_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"D,101,Tea",
		"X,101,Tea,1.99,0",
		"D,abc,Tea,1.99,0",
		"D,101,Tea,cheap,0",
		"D,101,Tea,-1,0",
		"F,103,Cake,3.99,4",
		"F,103,Cake,3.99,4,20/10/2026",
	} {
		_, err := ParseProduct(line)
		assert.ErrorIs(t, err, ErrParse, line)
	}
}

func TestParseProduct_OutOfRangeRatingClamps(t *testing.T) {
	p, err := ParseProduct("D,1,Tea,1.99,9")
	require.NoError(t, err)
	assert.Equal(t, catalog.NotRated, p.Rating())
}

func TestParseReview(t *testing.T) {
	r, err := ParseReview("4,Nice hot cup, of tea")
	require.NoError(t, err)
	assert.Equal(t, catalog.FourStar, r.Rating)
	assert.Equal(t, "Nice hot cup, of tea", r.Comments)

	_, err = ParseReview("no comments here")
	assert.ErrorIs(t, err, ErrParse)
	_, err = ParseReview("x,bad stars")
	assert.ErrorIs(t, err, ErrParse)
}

func TestFormatProduct_ParsesBack(t *testing.T) {
	bb := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	in := catalog.NewFood(7, "Cookie", decimalOf(t, "2.99"), catalog.TwoStar, bb)

	out, err := ParseProduct(FormatProduct(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

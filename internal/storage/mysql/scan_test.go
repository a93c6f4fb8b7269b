package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow hands fixed column values to Scan in order.
type fakeRow []any

func (f fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = f[i].(string)
		case *int:
			*p = f[i].(int)
		case *float64:
			*p = f[i].(float64)
		case *[]byte:
			if f[i] != nil {
				*p = f[i].([]byte)
			}
		}
	}
	return nil
}

func listingRow(gallery, highlights []byte) fakeRow {
	return fakeRow{
		"id-1", "Flat A", "flat-a", "",
		"1 Road", "London", "UK",
		2, 1, 4, 700,
		150.0, "https://img/hero.jpg",
		gallery, highlights,
		"desc",
	}
}

func TestScanListing(t *testing.T) {
	l, err := scanListing(listingRow([]byte(`["a.jpg","b.jpg"]`), []byte(`["wifi"]`)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, l.Gallery)
	assert.Equal(t, []string{"wifi"}, l.Highlights)
	assert.Equal(t, 700, l.Sqft)

	l, err = scanListing(listingRow(nil, nil))
	require.NoError(t, err, "NULL columns read as empty")
	assert.Empty(t, l.Gallery)
}

func TestScanListing_CorruptJSON(t *testing.T) {
	_, err := scanListing(listingRow([]byte(`["a.jpg"`), []byte(`[]`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gallery")

	_, err = scanListing(listingRow([]byte(`[]`), []byte(`{"not":"a list"}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "highlights")
}

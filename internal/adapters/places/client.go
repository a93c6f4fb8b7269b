// internal/adapters/places/client.go
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

const detailFields = "place_id,name,rating,user_ratings_total,reviews,formatted_address,website"

type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

// New returns a Places client. An empty key is allowed; calls will then be
// rejected upstream.
func New(base, key string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if key == "" {
		log.Warn().Msg("GOOGLE_PLACES_KEY not set, Google Places calls will fail")
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 10 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(10), 10),
	}
}

type findResponse struct {
	Status     string `json:"status"`
	Candidates []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
	ErrorMessage string `json:"error_message"`
}

// FindPlaceID returns the first candidate for text, or "" when nothing matched.
func (c *Client) FindPlaceID(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("input", text)
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id")

	var out findResponse
	if err := c.get(ctx, "findplacefromtext", q, &out); err != nil {
		return "", err
	}
	if err := statusErr(out.Status, out.ErrorMessage); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}
	return out.Candidates[0].PlaceID, nil
}

type detailsResponse struct {
	Status       string       `json:"status"`
	Result       *placeResult `json:"result"`
	ErrorMessage string       `json:"error_message"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Website          string   `json:"website"`
	Reviews          []struct {
		AuthorName              string  `json:"author_name"`
		Rating                  float64 `json:"rating"`
		Text                    string  `json:"text"`
		Time                    int64   `json:"time"`
		RelativeTimeDescription string  `json:"relative_time_description"`
		ProfilePhotoURL         string  `json:"profile_photo_url"`
	} `json:"reviews"`
}

// PlaceDetails returns nil without error when the place has no result.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (*domain.PlaceDetails, error) {
	if placeID == "" {
		return nil, fmt.Errorf("%w: placeId required", domain.ErrInvalid)
	}
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("place_id", placeID)
	q.Set("fields", detailFields)

	var out detailsResponse
	if err := c.get(ctx, "details", q, &out); err != nil {
		return nil, err
	}
	if out.Status == "NOT_FOUND" || out.Result == nil {
		return nil, nil
	}
	if err := statusErr(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}

	r := out.Result
	d := &domain.PlaceDetails{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		Address:          r.FormattedAddress,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		Website:          r.Website,
		Reviews:          make([]domain.PlaceReview, 0, len(r.Reviews)),
	}
	for _, rv := range r.Reviews {
		d.Reviews = append(d.Reviews, domain.PlaceReview{
			AuthorName:              rv.AuthorName,
			Rating:                  rv.Rating,
			Text:                    rv.Text,
			Time:                    rv.Time,
			RelativeTimeDescription: rv.RelativeTimeDescription,
			ProfilePhotoURL:         rv.ProfilePhotoURL,
		})
	}
	return d, nil
}

// statusErr maps the API's in-body status. OK and ZERO_RESULTS are not errors.
func statusErr(status, msg string) error {
	switch status {
	case "", "OK", "ZERO_RESULTS":
		return nil
	}
	if msg != "" {
		return fmt.Errorf("places: %s: %s", status, msg)
	}
	return fmt.Errorf("places: %s", status)
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/%s/json?%s", c.base, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return stripURL(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		err = stripURL(endpoint, err)
		observability.ObserveExternal("google_places", endpoint, 0, time.Since(start))
		log.Warn().Err(err).Str("endpoint", endpoint).Str("kind", observability.LabelErr(errors.Unwrap(err))).Msg("places request failed")
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("google_places", endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("places: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(endpoint string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return fmt.Errorf("places %s: %w", endpoint, err)
}

package fetcher

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/dimitrmo/cygaz/internal/petrol"
)

const (
	defaultEndpoint  = "https://eforms.eservices.cyprus.gov.cy/MCIT/MCIT/PetroleumPrices"
	defaultUserAgent = "Mozilla/4.0 (compatible; MSIE 8.0; Windows NT 6.1; Trident/4.0)"

	tokenSelector  = `input[name="__RequestVerificationToken"]`
	pricesSelector = "#petroleumPriceDetailsFootable"
)

// Options parameterise the cygaz fetcher.
type Options struct {
	Endpoint   string
	UserAgent  string
	RetryCount int
}

// Cygaz scrapes the government petroleum prices form. Fetching is a
// two-step flow: GET the form page for the anti-forgery token (the server
// pairs it with a session cookie), then POST the filter form and parse the
// result table.
type Cygaz struct {
	opts     Options
	client   *resty.Client
	endpoint *url.URL
	logger   zerolog.Logger
}

// NewCygaz constructs the upstream fetcher.
func NewCygaz(opts Options, logger zerolog.Logger) (*Cygaz, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New().
		SetCookieJar(jar).
		SetHeader("User-Agent", opts.UserAgent).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryConditions(retryCondition)

	return &Cygaz{
		opts:     opts,
		client:   client,
		endpoint: endpoint,
		logger:   logger.With().Str("component", "cygaz_fetcher").Logger(),
	}, nil
}

// Close releases the underlying HTTP client resources.
func (c *Cygaz) Close() error {
	return c.client.Close()
}

// retryCondition retries network errors and server-side failures; client
// errors are final.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return r.StatusCode() >= 500 || r.StatusCode() == 429
}

// Fetch retrieves and parses the full station list for t.
func (c *Cygaz) Fetch(ctx context.Context, t petrol.Type) ([]petrol.Station, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"__RequestVerificationToken": token,
			"Entity.StationCityEnum":     "All",
			"Entity.PetroleumType":       fmt.Sprintf("%d", t.ID()),
			"Entity.StationDistrict":     "",
		}).
		Post(c.opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("post prices form: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %d on prices form", ErrBadStatus, res.StatusCode())
	}

	stations, err := c.parseStations(res.String())
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Uint32("petroleum_type", t.ID()).
		Int("stations", len(stations)).
		Msg("fetched station prices")

	return stations, nil
}

func (c *Cygaz) fetchToken(ctx context.Context) (string, error) {
	res, err := c.client.R().SetContext(ctx).Get(c.opts.Endpoint)
	if err != nil {
		return "", fmt.Errorf("get prices page: %w", err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("%w: %d on prices page", ErrBadStatus, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return "", fmt.Errorf("parse prices page: %w", err)
	}

	token, ok := doc.Find(tokenSelector).First().Attr("value")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: verification token not found", ErrPageShape)
	}
	return token, nil
}

func (c *Cygaz) parseStations(body string) ([]petrol.Station, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse prices response: %w", err)
	}

	table := doc.Find(pricesSelector)
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: prices table not found", ErrPageShape)
	}

	var stations []petrol.Station
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		station, ok := c.parseRow(row)
		if !ok {
			return
		}
		stations = append(stations, station)
	})

	return stations, nil
}

// parseRow extracts one station from a table row. Malformed rows are
// dropped individually so one bad entry does not fail the whole fetch.
func (c *Cygaz) parseRow(row *goquery.Selection) (petrol.Station, bool) {
	cells := row.Find("td")
	if cells.Length() < 5 {
		return petrol.Station{}, false
	}

	brandCell := cells.Eq(0)
	brand := strings.TrimSpace(brandCell.Text())
	offline := brandCell.HasClass("isOffLine")
	company := strings.TrimSpace(cells.Eq(1).Text())

	address, lat, lon, err := c.parseAddress(cells.Eq(2))
	if err != nil {
		c.logger.Debug().Err(err).Str("brand", brand).Msg("dropping row with bad address cell")
		return petrol.Station{}, false
	}

	area := strings.TrimSpace(cells.Eq(3).Text())

	price, err := petrol.ParsePrice(strings.TrimSpace(cells.Eq(4).Text()))
	if err != nil {
		c.logger.Debug().Err(err).Str("brand", brand).Msg("dropping row with bad price cell")
		return petrol.Station{}, false
	}

	return petrol.Station{
		Brand:     brand,
		Offline:   offline,
		Company:   company,
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
		Area:      area,
		Price:     price,
		District:  petrol.DistrictForArea(area),
	}, true
}

// parseAddress pulls the address text and the coordinates query parameter
// from the map link. Coordinates come comma- or space-separated depending
// on the upstream row.
func (c *Cygaz) parseAddress(cell *goquery.Selection) (address, lat, lon string, err error) {
	link := cell.Find("a").First()
	if link.Length() == 0 {
		return "", "", "", fmt.Errorf("%w: address link missing", ErrPageShape)
	}

	address = strings.TrimSpace(link.Text())

	href, ok := link.Attr("href")
	if !ok {
		return "", "", "", fmt.Errorf("%w: address href missing", ErrPageShape)
	}

	ref, err := c.endpoint.Parse(href)
	if err != nil {
		return "", "", "", fmt.Errorf("parse address href: %w", err)
	}

	coordinates := ref.Query().Get("coordinates")
	parts := strings.Split(coordinates, ",")
	if len(parts) == 1 {
		parts = strings.Split(coordinates, " ")
	}
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("%w: coordinates %q", ErrPageShape, coordinates)
	}

	return address, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

var _ Fetcher = (*Cygaz)(nil)

package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var fetchTracer = otel.Tracer("notifier.internal.schedule.fetch")

const defaultTimeout = 20 * time.Second

// cidHeader carries the clinic tenant id on every request.
const cidHeader = "clinicaNasNuvens-cid"

// Client reads the agenda listing endpoint with basic auth and the clinic
// CID header. Page numbering starts at 0.
type Client struct {
	baseURL    string
	user       string
	pass       string
	clinicCID  string
	httpClient *http.Client
}

// NewClient creates an agenda client. baseURL points at the agenda resource,
// e.g. https://api.example.com/agenda.
func NewClient(baseURL, user, pass, clinicCID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		user:      user,
		pass:      pass,
		clinicCID: clinicCID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPage returns one page of appointments between from and to (inclusive,
// YYYY-MM-DD). The response body may be a single page object or an array of
// page objects; either way the result is flattened into one Page whose
// TotalPages comes from the first object that reports it.
func (c *Client) FetchPage(ctx context.Context, from, to string, page int) (*Page, error) {
	ctx, span := fetchTracer.Start(ctx, "schedule.fetch_page")
	defer span.End()
	span.SetAttributes(
		attribute.String("notifier.from", from),
		attribute.String("notifier.to", to),
		attribute.Int("notifier.page", page),
	)

	endpoint := fmt.Sprintf("%s/lista", c.baseURL)
	params := url.Values{}
	params.Set("dataInicial", from)
	params.Set("dataFinal", to)
	params.Set("pagina", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("schedule: build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set(cidHeader, c.clinicCID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("schedule: fetch page %d: %w", page, err)
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		err = fmt.Errorf("schedule: read page %d: %w", page, err)
		span.RecordError(err)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("schedule: fetch page %d: status %d", page, resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	return decodePage(body)
}

func decodePage(body []byte) (*Page, error) {
	if len(body) == 0 {
		return &Page{}, nil
	}

	var pages []Page
	if err := json.Unmarshal(body, &pages); err != nil {
		var single Page
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("schedule: decode page: %w", err)
		}
		return &single, nil
	}

	merged := &Page{}
	for i := range pages {
		merged.Appointments = append(merged.Appointments, pages[i].Appointments...)
		if merged.TotalPages == nil && pages[i].TotalPages != nil {
			merged.TotalPages = pages[i].TotalPages
		}
	}
	return merged, nil
}

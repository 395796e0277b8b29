// Package caldav is the calendar source: it discovers the account's
// calendars over CalDAV (iCloud style) and fetches the raw VEVENTs for a
// time window. Everything downstream consumes the flat RawEvent slice it
// returns and never talks to the network itself.
package caldav

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/models"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
)

const timeRangeLayout = "20060102T150405Z"

// Config carries the CalDAV endpoint and credentials.
type Config struct {
	BaseURL        string
	Username       string
	AppPassword    string
	CalendarFilter string // lowercase substring match on display names, empty keeps all
	Timeout        time.Duration
}

// Client speaks just enough CalDAV for discovery plus calendar-query.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a CalDAV client. A nil logger is replaced with a no-op.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// CalendarInfo describes one discovered calendar collection.
type CalendarInfo struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

// Diagnosis is the discovery snapshot surfaced by the debug endpoint.
type Diagnosis struct {
	Principal string         `json:"principal"`
	Home      string         `json:"home"`
	Calendars []CalendarInfo `json:"calendars"`
}

// FetchEvents pulls every VEVENT across the matching calendars whose
// occurrences intersect [start, end). Results are sorted by the caller; the
// client only guarantees per-calendar completeness.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]models.RawEvent, error) {
	calendars, err := c.discoverCalendars(ctx)
	if err != nil {
		return nil, err
	}

	var events []models.RawEvent
	for _, cal := range calendars {
		body, err := c.calendarQuery(ctx, cal.Href, start, end)
		if err != nil {
			// One broken calendar must not blank the whole schedule.
			c.logger.Warn("calendar query failed",
				zap.String("calendar", cal.Name),
				zap.Error(err),
			)
			continue
		}
		evs := eventsFromICS(body, cal.Name, start, end, c.logger)
		events = append(events, evs...)
	}

	c.logger.Info("calendar fetch complete",
		zap.Int("calendars", len(calendars)),
		zap.Int("events", len(events)),
	)
	return events, nil
}

// Diagnose runs discovery only and reports what it found.
func (c *Client) Diagnose(ctx context.Context) (Diagnosis, error) {
	var d Diagnosis

	principal, err := c.findPrincipal(ctx)
	if err != nil {
		return d, err
	}
	d.Principal = principal

	home, err := c.findCalendarHome(ctx, principal)
	if err != nil {
		return d, err
	}
	d.Home = home

	cals, err := c.listCalendars(ctx, home)
	if err != nil {
		return d, err
	}
	d.Calendars = cals
	return d, nil
}

func (c *Client) discoverCalendars(ctx context.Context) ([]CalendarInfo, error) {
	principal, err := c.findPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	home, err := c.findCalendarHome(ctx, principal)
	if err != nil {
		return nil, err
	}
	cals, err := c.listCalendars(ctx, home)
	if err != nil {
		return nil, err
	}

	if c.cfg.CalendarFilter == "" {
		return cals, nil
	}
	var kept []CalendarInfo
	for _, cal := range cals {
		if strings.Contains(strings.ToLower(cal.Name), c.cfg.CalendarFilter) {
			kept = append(kept, cal)
		}
	}
	return kept, nil
}

const principalBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:current-user-principal/></d:prop>
</d:propfind>`

func (c *Client) findPrincipal(ctx context.Context) (string, error) {
	ms, err := c.propfind(ctx, c.cfg.BaseURL, "0", principalBody)
	if err != nil {
		return "", err
	}
	for _, resp := range ms.Responses {
		for _, ps := range resp.Propstats {
			if href := ps.Prop.CurrentUserPrincipal.Href; href != "" {
				return c.resolve(c.cfg.BaseURL, href)
			}
		}
	}
	return "", appErrors.Clone(appErrors.ErrUpstream, "no current-user-principal in CalDAV response")
}

const homeSetBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop><c:calendar-home-set/></d:prop>
</d:propfind>`

func (c *Client) findCalendarHome(ctx context.Context, principalURL string) (string, error) {
	ms, err := c.propfind(ctx, principalURL, "0", homeSetBody)
	if err != nil {
		return "", err
	}
	for _, resp := range ms.Responses {
		for _, ps := range resp.Propstats {
			if href := ps.Prop.CalendarHomeSet.Href; href != "" {
				return c.resolve(principalURL, href)
			}
		}
	}
	return "", appErrors.Clone(appErrors.ErrUpstream, "no calendar-home-set in CalDAV response")
}

const calendarListBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:displayname/><d:resourcetype/></d:prop>
</d:propfind>`

func (c *Client) listCalendars(ctx context.Context, homeURL string) ([]CalendarInfo, error) {
	ms, err := c.propfind(ctx, homeURL, "1", calendarListBody)
	if err != nil {
		return nil, err
	}

	var cals []CalendarInfo
	for _, resp := range ms.Responses {
		for _, ps := range resp.Propstats {
			if ps.Prop.ResourceType.Calendar == nil {
				continue
			}
			href, err := c.resolve(homeURL, resp.Href)
			if err != nil {
				continue
			}
			cals = append(cals, CalendarInfo{Name: ps.Prop.DisplayName, Href: href})
		}
	}
	return cals, nil
}

const calendarQueryBody = `<?xml version="1.0" encoding="utf-8"?>
<c:calendar-query xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop><d:getetag/><c:calendar-data/></d:prop>
  <c:filter>
    <c:comp-filter name="VCALENDAR">
      <c:comp-filter name="VEVENT">
        <c:time-range start="%s" end="%s"/>
      </c:comp-filter>
    </c:comp-filter>
  </c:filter>
</c:calendar-query>`

// calendarQuery runs a REPORT and returns the concatenated calendar-data
// payloads of every matching object.
func (c *Client) calendarQuery(ctx context.Context, calendarURL string, start, end time.Time) ([]string, error) {
	body := fmt.Sprintf(calendarQueryBody,
		start.UTC().Format(timeRangeLayout),
		end.UTC().Format(timeRangeLayout),
	)

	ms, err := c.request(ctx, "REPORT", calendarURL, "1", body)
	if err != nil {
		return nil, err
	}

	var payloads []string
	for _, resp := range ms.Responses {
		for _, ps := range resp.Propstats {
			if data := strings.TrimSpace(ps.Prop.CalendarData); data != "" {
				payloads = append(payloads, data)
			}
		}
	}
	return payloads, nil
}

func (c *Client) propfind(ctx context.Context, target, depth, body string) (*multistatus, error) {
	return c.request(ctx, "PROPFIND", target, depth, body)
}

func (c *Client) request(ctx context.Context, method, target, depth, body string) (*multistatus, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, strings.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build CalDAV request")
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Depth", depth)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "calendar source unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("CalDAV %s %s returned %s", method, target, resp.Status))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "read CalDAV response")
	}

	var ms multistatus
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "parse CalDAV response")
	}
	return &ms, nil
}

func (c *Client) resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(h).String(), nil
}

// WebDAV multistatus shapes; element matching is by local name so the DAV
// and caldav namespaces both bind.
type multistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string     `xml:"href"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	CurrentUserPrincipal davHref      `xml:"current-user-principal"`
	CalendarHomeSet      davHref      `xml:"calendar-home-set"`
	DisplayName          string       `xml:"displayname"`
	ResourceType         resourceType `xml:"resourcetype"`
	CalendarData         string       `xml:"calendar-data"`
}

type davHref struct {
	Href string `xml:"href"`
}

type resourceType struct {
	Calendar *struct{} `xml:"calendar"`
}

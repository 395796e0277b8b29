package caldav

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func caldavTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "crew@example.com" || pass != "app-pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusMultiStatus)

		switch {
		case r.Method == "PROPFIND" && r.URL.Path == "/":
			fmt.Fprint(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:">
  <d:response><d:href>/</d:href>
    <d:propstat><d:prop>
      <d:current-user-principal><d:href>/principal/1/</d:href></d:current-user-principal>
    </d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		case r.Method == "PROPFIND" && r.URL.Path == "/principal/1/":
			fmt.Fprint(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response><d:href>/principal/1/</d:href>
    <d:propstat><d:prop>
      <c:calendar-home-set><d:href>/home/1/</d:href></c:calendar-home-set>
    </d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		case r.Method == "PROPFIND" && r.URL.Path == "/home/1/":
			fmt.Fprint(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response><d:href>/home/1/</d:href>
    <d:propstat><d:prop><d:displayname>Home root</d:displayname><d:resourcetype/></d:prop>
    <d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
  <d:response><d:href>/home/1/work/</d:href>
    <d:propstat><d:prop>
      <d:displayname>Work Schedule</d:displayname>
      <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
    </d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
  <d:response><d:href>/home/1/personal/</d:href>
    <d:propstat><d:prop>
      <d:displayname>Personal</d:displayname>
      <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
    </d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		case r.Method == "REPORT" && r.URL.Path == "/home/1/work/":
			fmt.Fprint(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response><d:href>/home/1/work/ev1.ics</d:href>
    <d:propstat><d:prop>
      <d:getetag>"1"</d:getetag>
      <c:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:ev-1
DTSTART:20241104T120000Z
DTEND:20241105T000000Z
SUMMARY:W1234
END:VEVENT
END:VCALENDAR</c:calendar-data>
    </d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return httptest.NewServer(mux)
}

func TestClientDiagnose(t *testing.T) {
	srv := caldavTestServer(t)
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:     srv.URL + "/",
		Username:    "crew@example.com",
		AppPassword: "app-pw",
	}, zap.NewNop())

	diag, err := client.Diagnose(context.Background())
	require.NoError(t, err)
	assert.Contains(t, diag.Principal, "/principal/1/")
	assert.Contains(t, diag.Home, "/home/1/")
	require.Len(t, diag.Calendars, 2)
	assert.Equal(t, "Work Schedule", diag.Calendars[0].Name)
}

func TestClientFetchEventsWithFilter(t *testing.T) {
	srv := caldavTestServer(t)
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:        srv.URL + "/",
		Username:       "crew@example.com",
		AppPassword:    "app-pw",
		CalendarFilter: "work",
	}, zap.NewNop())

	events, err := client.FetchEvents(context.Background(),
		time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].UID)
	assert.Equal(t, "W1234", events[0].Summary)
	assert.Equal(t, "Work Schedule", events[0].Calendar)
}

func TestClientBadCredentials(t *testing.T) {
	srv := caldavTestServer(t)
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:     srv.URL + "/",
		Username:    "crew@example.com",
		AppPassword: "wrong",
	}, zap.NewNop())

	_, err := client.Diagnose(context.Background())
	assert.Error(t, err)
}

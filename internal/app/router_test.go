package app_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		BaseURL:              "http://localhost:8080",
		DBDriver:             config.DriverSQLite,
		Currency:             "usd",
		PaymentProvider:      config.ProviderMock,
		PaymentTimeout:       time.Second,
		CheckoutNameTemplate: "Donation to: {title}",
		QueueDriver:          config.QueueMemory,
	}

	conn, err := db.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn, config.DriverSQLite))

	a, err := app.New(cfg, conn, queue.NewInMemoryQueue())
	require.NoError(t, err)
	require.True(t, a.StartInProcessWorker())

	srv := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path, body string) (*http.Response, map[string]any) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noRedirect.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(c.t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func register(t *testing.T, srv *httptest.Server, username string) *client {
	t.Helper()
	c := &client{t: t, base: srv.URL}
	resp, body := c.do(http.MethodPost, "/accounts/register",
		`{"username":"`+username+`","email":"`+username+`@example.org","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c.token = body["token"].(string)
	return c
}

func TestRouter_Health(t *testing.T) {
	srv := newServer(t)
	c := &client{t: t, base: srv.URL}

	resp, body := c.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newServer(t)
	c := &client{t: t, base: srv.URL}

	resp, _ := c.do(http.MethodPost, "/campaigns", `{"title":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c.token = "not-a-token"
	resp, _ = c.do(http.MethodGet, "/accounts/profile", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_DonationLifecycle(t *testing.T) {
	srv := newServer(t)
	creator := register(t, srv, "maria")
	donor := register(t, srv, "joao")
	public := &client{t: t, base: srv.URL}

	end := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	resp, body := creator.do(http.MethodPost, "/campaigns", `{"title":"Community garden","goal":"1000","end_date":"`+end+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slug := body["slug"].(string)

	resp, _ = creator.do(http.MethodPost, "/campaigns/"+slug+"/publish", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = donor.do(http.MethodPost, "/campaigns/"+slug+"/donate", `{"amount":"300.00"}`)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	donationID, err := strconv.Atoi(location[strings.LastIndex(location, "/")+1:])
	require.NoError(t, err)

	// The return page never settles the donation.
	resp, body = donor.do(http.MethodGet, "/donations/success/"+strconv.Itoa(donationID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["awaiting_confirmation"])
	session := body["donation"].(map[string]any)["transaction_id"].(string)
	require.NotEmpty(t, session)

	// an unsigned callback cannot address a donation by id
	resp, _ = public.do(http.MethodPost, "/donations/webhook", `{"id":"evt_0","donation_id":"`+strconv.Itoa(donationID)+`","outcome":"completed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	callback := `{"id":"evt_1","session_id":"` + session + `","outcome":"completed"}`
	for i := 0; i < 2; i++ {
		resp, body = public.do(http.MethodPost, "/donations/webhook", callback)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, i == 0, body["changed"])
	}

	resp, body = public.do(http.MethodGet, "/campaigns/"+slug, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "300", body["amount_raised"])
	assert.Equal(t, "30", body["progress"])
	assert.Equal(t, float64(1), body["donors_count"])

	require.Eventually(t, func() bool {
		_, profile := donor.do(http.MethodGet, "/accounts/profile", "")
		return profile["total_donated"] == "300"
	}, 3*time.Second, 20*time.Millisecond)

	resp, _ = public.do(http.MethodPost, "/donations/webhook", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

package ipprovider_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/seawhite/aws-r53-ip-updater/pkg/ipprovider"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func ipServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseIPv4(t *testing.T) {
	valid := []string{"203.0.113.7", "0.0.0.0", "255.255.255.255", "198.51.100.1"}
	for _, s := range valid {
		ip, err := ipprovider.ParseIPv4(s)
		assert.NilError(t, err, "expected %q to validate", s)
		assert.Equal(t, s, ip)
	}

	invalid := []string{
		"",
		"256.0.0.1",
		"1.2.3",
		"1.2.3.4.5",
		"a.b.c.d",
		"1.2.3.four",
		" 203.0.113.7",
		"203.0.113.7\n",
		"2001:db8::1",
		"::ffff:203.0.113.7",
	}
	for _, s := range invalid {
		_, err := ipprovider.ParseIPv4(s)
		assert.Assert(t, err != nil, "expected %q to be rejected", s)
	}
}

func TestGetCurrentIPTrimsAndValidates(t *testing.T) {
	srv := ipServer(t, "203.0.113.7\n")
	ip, err := ipprovider.GetCurrentIP(context.Background(), &ipprovider.ICanHazIp{BaseUrl: srv.URL}, nil)
	assert.NilError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestIpifyParsesJSONBody(t *testing.T) {
	srv := ipServer(t, `{"ip":"203.0.113.7"}`)
	ip, err := ipprovider.GetCurrentIP(context.Background(), &ipprovider.Ipify{BaseUrl: srv.URL}, nil)
	assert.NilError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestResolveFallsBackAndShortCircuits(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	good := ipServer(t, "203.0.113.7")

	thirdHits := 0
	third := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		thirdHits++
		io.WriteString(w, "198.51.100.9")
	}))
	defer third.Close()

	providers := []ipprovider.Provider{
		&ipprovider.Ifconfig{BaseUrl: failing.URL},
		&ipprovider.ICanHazIp{BaseUrl: good.URL},
		&ipprovider.Ipinfo{BaseUrl: third.URL},
	}

	ip, err := ipprovider.Resolve(context.Background(), providers, nil, testLogger())
	assert.NilError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, 0, thirdHits, "later providers must not be consulted after a success")
}

func TestResolveSkipsInvalidBodies(t *testing.T) {
	garbage := ipServer(t, "<html>not an ip</html>")
	good := ipServer(t, "203.0.113.7")

	providers := []ipprovider.Provider{
		&ipprovider.Ifconfig{BaseUrl: garbage.URL},
		&ipprovider.ICanHazIp{BaseUrl: good.URL},
	}

	ip, err := ipprovider.Resolve(context.Background(), providers, nil, testLogger())
	assert.NilError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestResolveExhaustedReturnsErrNoIPAvailable(t *testing.T) {
	garbage := ipServer(t, "not an ip")
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	providers := []ipprovider.Provider{
		&ipprovider.Ifconfig{BaseUrl: garbage.URL},
		&ipprovider.ICanHazIp{BaseUrl: failing.URL},
	}

	_, err := ipprovider.Resolve(context.Background(), providers, nil, testLogger())
	assert.ErrorIs(t, err, ipprovider.ErrNoIPAvailable)
}

func TestResolveCountsEveryAttempt(t *testing.T) {
	garbage := ipServer(t, "not an ip")
	good := ipServer(t, "203.0.113.7")

	providers := []ipprovider.Provider{
		&ipprovider.Ifconfig{BaseUrl: garbage.URL},
		&ipprovider.ICanHazIp{BaseUrl: good.URL},
	}

	counts := map[string]int{}
	_, err := ipprovider.Resolve(context.Background(), providers, func(name string) {
		counts[name]++
	}, testLogger())
	assert.NilError(t, err)
	assert.Equal(t, 1, counts["ifconfig"])
	assert.Equal(t, 1, counts["icanhazip"])
}

package metadata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkerbell/vultrds/internal/dserror"
	. "github.com/tinkerbell/vultrds/internal/metadata"
)

// fakeAPI serves the metadata API from a path to body table.
type fakeAPI struct {
	mu       sync.Mutex
	bodies   map[string]string
	failures map[string]int
	hits     map[string]int
	tokens   []string
}

func newFakeAPI(t *testing.T, v1File string) *fakeAPI {
	t.Helper()

	v1, err := os.ReadFile(v1File)
	require.NoError(t, err)

	return &fakeAPI{
		bodies: map[string]string{
			"/latest/startup-script":       "",
			"/latest/meta-data/hostname":   "CLOUDINIT_1",
			"/latest/user-data":            "#cloud-config\n",
			"/v1/internal/mdisk-mode":      "auto",
			"/v1/internal/root-password":   "hunter2",
			"/current/ssh-keys":            "ssh-rsa AAAA... test@key\n\nssh-rsa BBBB... test2@key\n",
			"/current/ipv6-dns1":           "2001:19f0:300:1704::6",
			"/current/meta-data/ipv6-addr": "2001:19f0:5:56c2:5400:03ff:fe15:c465",
			"/v1.json":                     string(v1),
		},
		failures: map[string]int{},
		hits:     map[string]int{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hits[r.URL.Path]++
	f.tokens = append(f.tokens, r.Header.Get(TokenHeader))

	if f.failures[r.URL.Path] > 0 {
		f.failures[r.URL.Path]--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	body, ok := f.bodies[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(body))
}

func (f *fakeAPI) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, h := range f.hits {
		n += h
	}
	return n
}

func newClient(url string, retries int) *Client {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Retries = retries
	cfg.Wait = 0
	return NewClient(logr.Discard(), cfg, WithHTTPClient(http.DefaultClient))
}

func TestGet(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	srv := httptest.NewServer(api)
	defer srv.Close()

	bundle, err := newClient(srv.URL, 0).Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "", bundle.StartupScript)
	assert.Equal(t, "CLOUDINIT_1", bundle.Hostname)
	assert.Equal(t, "#cloud-config\n", bundle.UserData)
	assert.Equal(t, "auto", bundle.MDiskMode)
	assert.Equal(t, "hunter2", bundle.RootPassword)
	assert.Equal(t, "2001:19f0:300:1704::6", bundle.IPv6DNS1)
	assert.Equal(t, "2001:19f0:5:56c2:5400:03ff:fe15:c465", bundle.IPv6Addr)
	assert.Equal(t, []string{"ssh-rsa AAAA... test@key", "ssh-rsa BBBB... test2@key"}, bundle.PublicKeys())

	expect := InstanceDocument{
		Hostname:   "CLOUDINIT_1",
		InstanceID: "42506325",
		Interfaces: []InterfaceDescriptor{
			{
				MAC:         "56:00:03:15:c4:65",
				NetworkType: NetworkTypePublic,
				IPv4: IPv4Block{
					Address: "108.61.89.242",
					Gateway: "108.61.89.1",
					Netmask: "255.255.255.0",
				},
				IPv6: &IPv6Block{
					Address: "2001:19f0:5:56c2:5400:03ff:fe15:c465",
					Network: "2001:19f0:5:56c2::",
					Prefix:  "64",
				},
			},
		},
		PublicKeys:  "ssh-rsa AAAAB3NzaC1yc2EAAAA... test3@key\n",
		Region:      Region{RegionCode: "EWR"},
		UserDefined: UserDefined{},
	}
	// Empty "additional" lists carry no information worth comparing.
	opt := cmp.Transformer("dropAdditional", func(d InterfaceDescriptor) InterfaceDescriptor {
		d.IPv4.Additional = nil
		if d.IPv6 != nil {
			v6 := *d.IPv6
			v6.Additional = nil
			d.IPv6 = &v6
		}
		return d
	})
	if diff := cmp.Diff(expect, bundle.Instance, opt); diff != "" {
		t.Fatal(diff)
	}

	for _, token := range api.tokens {
		assert.Equal(t, "vultr", token)
	}
}

func TestGetIsMemoized(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	srv := httptest.NewServer(api)
	defer srv.Close()

	client := newClient(srv.URL, 0)

	first, err := client.Get(context.Background())
	require.NoError(t, err)
	hits := api.totalHits()
	assert.Equal(t, 9, hits)

	second, err := client.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, hits, api.totalHits())
}

func TestGetConcurrentCallersShareOneCycle(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	srv := httptest.NewServer(api)
	defer srv.Close()

	client := newClient(srv.URL, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, api.totalHits())
}

func TestGetFailureIsNotCached(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	api.failures["/v1/internal/root-password"] = 1
	srv := httptest.NewServer(api)
	defer srv.Close()

	client := newClient(srv.URL, 0)

	_, err := client.Get(context.Background())
	require.ErrorIs(t, err, dserror.ErrFetch)
	assert.True(t, dserror.IsRetryable(err))

	// Nothing after the failing field is requested.
	assert.Zero(t, api.hits["/current/ssh-keys"])

	bundle, err := client.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", bundle.RootPassword)
}

func TestGetMalformedInstanceDocument(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	api.bodies["/v1.json"] = "{not json"
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newClient(srv.URL, 0).Get(context.Background())
	require.ErrorIs(t, err, dserror.ErrFetch)
}

func TestGetLooseInstanceDocument(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	api.bodies["/v1.json"] = `{
		"hostname": "CLOUDINIT_1",
		"interfaces": [{
			"mac": "56:00:03:15:c4:65",
			"network-type": "public",
			"ipv4": {"address": "108.61.89.242", "gateway": "108.61.89.1", "netmask": "255.255.255.0"},
			"ipv6": {"address": "2001:19f0:5:56c2:5400:03ff:fe15:c465", "network": "2001:19f0:5:56c2::", "prefix": 64}
		}],
		"user-defined": [{"count": 3}, {"tags": ["a", "b"]}]
	}`
	srv := httptest.NewServer(api)
	defer srv.Close()

	bundle, err := newClient(srv.URL, 0).Get(context.Background())
	require.NoError(t, err)
	require.Len(t, bundle.Instance.Interfaces, 1)
	assert.Equal(t, "56:00:03:15:c4:65", bundle.Instance.Interfaces[0].MAC)
	assert.Equal(t, PrefixLength("64"), bundle.Instance.Interfaces[0].IPv6.Prefix)
	assert.Equal(t, UserDefined{"count": "3", "tags": `["a","b"]`}, bundle.Instance.UserDefined)
}

func TestFetchRetries(t *testing.T) {
	cases := []struct {
		Name      string
		Failures  int
		Retries   int
		ExpectErr bool
		Hits      int
	}{
		{Name: "SucceedsWithinBudget", Failures: 2, Retries: 3, Hits: 3},
		{Name: "ExhaustsBudget", Failures: 5, Retries: 2, ExpectErr: true, Hits: 3},
		{Name: "NoRetries", Failures: 1, Retries: 0, ExpectErr: true, Hits: 1},
	}

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			api := newFakeAPI(t, "testdata/v1_public.json")
			api.failures["/latest/meta-data/hostname"] = tc.Failures
			srv := httptest.NewServer(api)
			defer srv.Close()

			v, err := newClient(srv.URL, tc.Retries).Fetch(context.Background(), FieldHostname)
			if tc.ExpectErr {
				require.ErrorIs(t, err, dserror.ErrFetch)

				var e *dserror.E
				require.ErrorAs(t, err, &e)
				assert.Equal(t, http.StatusServiceUnavailable, e.StatusCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "CLOUDINIT_1", v)
			}
			assert.Equal(t, tc.Hits, api.hits["/latest/meta-data/hostname"])
		})
	}
}

func TestFetchDynamicField(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	api.bodies["/v1/internal/app-wordpress"] = "enabled"
	srv := httptest.NewServer(api)
	defer srv.Close()

	v, err := newClient(srv.URL, 0).Fetch(context.Background(), "app-wordpress")
	require.NoError(t, err)
	assert.Equal(t, "enabled", v)
}

func TestFetchUnknownFieldMakesNoRequest(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newClient(srv.URL, 3).Fetch(context.Background(), "instance-id")
	require.ErrorIs(t, err, dserror.ErrConfiguration)
	assert.False(t, dserror.IsRetryable(err))
	assert.Zero(t, api.totalHits())
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url, 1).Fetch(context.Background(), FieldHostname)
	require.ErrorIs(t, err, dserror.ErrFetch)
}

func TestFetchRecordsMetrics(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	api.failures["/latest/meta-data/hostname"] = 1
	srv := httptest.NewServer(api)
	defer srv.Close()

	registry := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Retries = 1
	cfg.Wait = 0
	client := NewClient(logr.Discard(), cfg, WithHTTPClient(http.DefaultClient), WithRegisterer(registry))

	_, err := client.Fetch(context.Background(), FieldHostname)
	require.NoError(t, err)

	expect := `
# HELP vultrds_metadata_requests_total Count of metadata API requests by field and result.
# TYPE vultrds_metadata_requests_total counter
vultrds_metadata_requests_total{field="hostname",result="error"} 1
vultrds_metadata_requests_total{field="hostname",result="success"} 1
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expect), "vultrds_metadata_requests_total")
	require.NoError(t, err)
}

func TestFetchDynamicFieldMetricsShareOneLabel(t *testing.T) {
	api := newFakeAPI(t, "testdata/v1_public.json")
	api.bodies["/v1/internal/app-wordpress"] = "enabled"
	api.bodies["/v1/internal/md-token"] = "abc"
	srv := httptest.NewServer(api)
	defer srv.Close()

	registry := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Retries = 0
	cfg.Wait = 0
	client := NewClient(logr.Discard(), cfg, WithHTTPClient(http.DefaultClient), WithRegisterer(registry))

	for _, field := range []Field{"app-wordpress", "md-token", "md-missing"} {
		_, _ = client.Fetch(context.Background(), field)
	}

	expect := `
# HELP vultrds_metadata_requests_total Count of metadata API requests by field and result.
# TYPE vultrds_metadata_requests_total counter
vultrds_metadata_requests_total{field="dynamic",result="error"} 1
vultrds_metadata_requests_total{field="dynamic",result="success"} 2
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expect), "vultrds_metadata_requests_total")
	require.NoError(t, err)
}

func TestParseInstanceDocumentUserDefined(t *testing.T) {
	cases := []struct {
		Name   string
		Raw    string
		Expect UserDefined
	}{
		{Name: "EmptyList", Raw: `{"user-defined": []}`, Expect: UserDefined{}},
		{Name: "List", Raw: `{"user-defined": [{"a": "1"}, {"b": "2"}]}`, Expect: UserDefined{"a": "1", "b": "2"}},
		{Name: "Object", Raw: `{"user-defined": {"a": "1"}}`, Expect: UserDefined{"a": "1"}},
		{Name: "Null", Raw: `{"user-defined": null}`, Expect: nil},
		{Name: "Absent", Raw: `{}`, Expect: nil},
		{Name: "NumberValue", Raw: `{"user-defined": [{"count": 3}]}`, Expect: UserDefined{"count": "3"}},
		{Name: "ArrayValue", Raw: `{"user-defined": {"tags": ["a", "b"]}}`, Expect: UserDefined{"tags": `["a","b"]`}},
		{Name: "MixedList", Raw: `{"user-defined": [{"a": true}, "stray", 7, {"b": null}]}`, Expect: UserDefined{"a": "true", "b": "null"}},
		{Name: "Scalar", Raw: `{"user-defined": "none"}`, Expect: nil},
	}

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			doc, err := ParseInstanceDocument([]byte(tc.Raw))
			require.NoError(t, err)
			assert.Equal(t, tc.Expect, doc.UserDefined)
		})
	}
}

func TestParseInstanceDocumentIPv6Prefix(t *testing.T) {
	cases := []struct {
		Name   string
		Raw    string
		Expect PrefixLength
	}{
		{Name: "String", Raw: `"64"`, Expect: "64"},
		{Name: "Number", Raw: `64`, Expect: "64"},
		{Name: "Empty", Raw: `""`, Expect: ""},
		{Name: "Null", Raw: `null`, Expect: ""},
	}

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			raw := `{"interfaces": [{"mac": "56:00:04:41:a1:b2", "ipv6": {"network": "2001:db8::", "prefix": ` + tc.Raw + `}}]}`
			doc, err := ParseInstanceDocument([]byte(raw))
			require.NoError(t, err)
			require.Len(t, doc.Interfaces, 1)
			require.NotNil(t, doc.Interfaces[0].IPv6)
			assert.Equal(t, tc.Expect, doc.Interfaces[0].IPv6.Prefix)
		})
	}
}

func TestParseInstanceDocumentPrivateInterface(t *testing.T) {
	raw, err := os.ReadFile("testdata/v1_private.json")
	require.NoError(t, err)

	doc, err := ParseInstanceDocument(raw)
	require.NoError(t, err)

	require.Len(t, doc.Interfaces, 2)
	private := doc.Interfaces[1]
	assert.Equal(t, NetworkTypePrivate, private.NetworkType)
	assert.Equal(t, "", private.IPv4.Gateway)
	assert.Equal(t, "net5e7155329d730", private.NetworkID)
	assert.Equal(t, UserDefined{"env": "staging"}, doc.UserDefined)
}

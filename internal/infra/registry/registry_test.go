package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
	"ddigate/internal/infra/pipeline"
	"ddigate/internal/infra/upstream"
)

type testEnv struct {
	registry *Registry
	pipe     *pipeline.Pipeline
	requests *atomic.Int64
}

// newTestEnv builds the full catalog against one upstream double.
func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := func(service string) *upstream.Client {
		c, err := upstream.New(upstream.Options{BaseURL: server.URL, APIKey: "k", Service: service})
		require.NoError(t, err)
		return c
	}

	pipe := pipeline.New(pipeline.Config{CacheEnabled: true}, nil, nil, nil)
	reg, err := Build(Deps{
		Pipeline: pipe,
		DDI:      client(domain.ServiceDDI),
		Atcfw:    client(domain.ServiceAtcfw),
		Insights: client(domain.ServiceInsights),
		NIOSXaaS: client(domain.ServiceNIOSXaaS),
	})
	require.NoError(t, err)

	return &testEnv{registry: reg, pipe: pipe, requests: &requests}
}

func okListHandler(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
}

func TestBuild_CatalogContainsCoreTools(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	names := map[string]domain.ToolDescriptor{}
	for _, desc := range env.registry.List() {
		names[desc.Name] = desc
	}

	for _, expected := range []string{
		"list_ip_spaces", "list_subnets", "create_subnet", "delete_subnet",
		"list_dns_records", "create_a_record", "create_naptr_record", "delete_dns_record",
		"list_auth_zones", "list_dns_zones", "list_dns_views",
		"list_dhcp_hosts", "create_option_code", "delete_option_filter",
		"list_federated_realms", "allocate_next_federated_block",
		"list_security_policies", "create_threat_named_list",
		"list_security_insights", "update_security_insight_status",
		"configure_vpn_infrastructure", "delete_vpn_service", "get_vpn_endpoint_cnames",
		"list_subnet_utilization",
	} {
		require.Contains(t, names, expected)
	}

	// Every mutation is uncacheable; every cacheable tool is a read.
	for name, desc := range names {
		if desc.Classification == domain.ToolMutate {
			require.False(t, desc.CachePolicy.Enabled(), "tool %s", name)
		}
		if desc.CachePolicy.Enabled() {
			require.Equal(t, domain.ToolRead, desc.Classification, "tool %s", name)
		}
	}
}

func TestInvoke_UnknownTool(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	_, err := env.registry.Invoke(context.Background(), "no_such_tool", nil)
	require.Equal(t, domain.KindUnknownTool, domain.KindFrom(err))
	require.Zero(t, env.requests.Load())
}

func TestInvoke_SchemaViolationMissingRequired(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	// create_a_record requires name, zone and ip_address.
	_, err := env.registry.Invoke(context.Background(), "create_a_record", json.RawMessage(`{"name":"x"}`))
	require.Equal(t, domain.KindSchemaViolation, domain.KindFrom(err))
	require.Zero(t, env.requests.Load(), "schema violations never reach the upstream")
}

func TestInvoke_SchemaViolationUnknownField(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	_, err := env.registry.Invoke(context.Background(), "list_ip_spaces", json.RawMessage(`{"limit":10,"bogus":true}`))
	require.Equal(t, domain.KindSchemaViolation, domain.KindFrom(err))
	require.Zero(t, env.requests.Load())
}

func TestInvoke_SchemaViolationWrongType(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	_, err := env.registry.Invoke(context.Background(), "list_ip_spaces", json.RawMessage(`{"limit":"ten"}`))
	require.Equal(t, domain.KindSchemaViolation, domain.KindFrom(err))
	require.Zero(t, env.requests.Load())
}

func TestInvoke_EnumEnforced(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	_, err := env.registry.Invoke(context.Background(), "list_security_insights", json.RawMessage(`{"status":"Bogus"}`))
	require.Equal(t, domain.KindSchemaViolation, domain.KindFrom(err))
	require.Zero(t, env.requests.Load())
}

func TestInvoke_ValidCallReachesUpstreamOnce(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	result, err := env.registry.Invoke(context.Background(), "list_ip_spaces", json.RawMessage(`{"limit":10}`))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, int64(1), env.requests.Load())
}

func TestInvoke_DefaultsMakeOmittedArgsCacheEquivalent(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	// list_ip_spaces defaults limit to 100, so {} and {"limit":100} share
	// one cache entry.
	_, err := env.registry.Invoke(context.Background(), "list_ip_spaces", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = env.registry.Invoke(context.Background(), "list_ip_spaces", json.RawMessage(`{"limit":100}`))
	require.NoError(t, err)
	require.Equal(t, int64(1), env.requests.Load())
}

func TestInvoke_CachedListToolIssuesOneUpstreamRequest(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	for i := 0; i < 3; i++ {
		_, err := env.registry.Invoke(context.Background(), "list_subnets", json.RawMessage(`{"limit":10}`))
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), env.requests.Load())
}

func TestInvoke_VPNPayloadValidation(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	cases := []struct {
		name    string
		payload string
	}{
		{"empty", `{"vpn_payload":{}}`},
		{"missing service", `{"vpn_payload":{"endpoints":{"create":[{}]}}}`},
		{"bad operation", `{"vpn_payload":{"universal_service":{"operation":"DESTROY","name":"v"}}}`},
		{"partial deployment", `{"vpn_payload":{"universal_service":{"operation":"CREATE","name":"v"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.registry.Invoke(context.Background(), "configure_vpn_infrastructure", json.RawMessage(tc.payload))
			require.Equal(t, domain.KindSchemaViolation, domain.KindFrom(err))
		})
	}
	require.Zero(t, env.requests.Load())
}

func TestInvoke_VPNConfigureSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		okListHandler(w, r)
	})

	payload := `{"vpn_payload":{
		"universal_service":{"operation":"CREATE","name":"Prod-VPN","capabilities":[{"type":"dns"}]},
		"credentials":{"create":[{"id":"ref_cred_1","type":"psk","name":"prod-psk","value":"s3cret"}],"update":[]},
		"endpoints":{"create":[{"name":"ep1"}],"update":[],"delete":[]},
		"access_locations":{"create":[],"update":[],"delete":[]}
	}}`
	_, err := env.registry.Invoke(context.Background(), "configure_vpn_infrastructure", json.RawMessage(payload))
	require.NoError(t, err)
	require.NotEmpty(t, gotKey)
	require.Equal(t, int64(1), env.requests.Load())
}

func TestInvoke_DeleteVPNServiceRequiresConfirm(t *testing.T) {
	env := newTestEnv(t, okListHandler)

	result, err := env.registry.Invoke(context.Background(), "delete_vpn_service", json.RawMessage(`{"service_name":"Prod-VPN"}`))
	require.NoError(t, err)
	require.Zero(t, env.requests.Load(), "unconfirmed deletion must not touch the upstream")

	payload, _ := json.Marshal(result)
	require.Contains(t, string(payload), "confirm=true")
}

func TestInvoke_GetByIDTranslatesNotFound(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such host", http.StatusNotFound)
	})

	result, err := env.registry.Invoke(context.Background(), "get_ipam_host", json.RawMessage(`{"host_id":"ipam/host/missing"}`))
	require.NoError(t, err, "404 becomes a semantic result, not an error frame")

	body, ok := result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, false, body["found"])
}

func TestRegister_RejectsCachedMutation(t *testing.T) {
	r := &Registry{tools: map[string]*entry{}}
	err := r.Register(domain.ToolDescriptor{
		Name:           "bad_tool",
		Classification: domain.ToolMutate,
		CachePolicy:    domain.CacheDefaultTTL(),
		Handler:        func(context.Context, map[string]any) (any, error) { return nil, nil },
	})
	require.Error(t, err)
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	r := &Registry{tools: map[string]*entry{}}
	desc := domain.ToolDescriptor{
		Name:        "dup_tool",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{"x": stringProp("")}),
		Handler:     func(context.Context, map[string]any) (any, error) { return nil, nil },
	}
	require.NoError(t, r.Register(desc))
	require.Error(t, r.Register(desc))
}

func TestSplitCIDR(t *testing.T) {
	address, prefix, ok := splitCIDR("192.168.1.0/24")
	require.True(t, ok)
	require.Equal(t, "192.168.1.0", address)
	require.Equal(t, "24", prefix)

	_, _, ok = splitCIDR("192.168.1.0")
	require.False(t, ok)
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEnrichCommandPrintsResult(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="mailto:info@acmecorp.com">Contact</a>
			<a href="https://www.linkedin.com/company/acme-corp">in</a>`))
	}))
	t.Cleanup(site.Close)

	out, err := execute(t, "enrich", site.URL)
	require.NoError(t, err)

	var got struct {
		Email       *string           `json:"email"`
		SocialLinks map[string]string `json:"socialLinks"`
		Success     bool              `json:"success"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.True(t, got.Success)
	require.NotNil(t, got.Email)
	require.Equal(t, "info@acmecorp.com", *got.Email)
	require.Equal(t, map[string]string{"linkedin": "https://www.linkedin.com/company/acme-corp"}, got.SocialLinks)
}

func TestEnrichCommandUnreachableSiteIsUnsuccessful(t *testing.T) {
	site := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(site.Close)

	out, err := execute(t, "enrich", site.URL)
	require.NoError(t, err)
	require.JSONEq(t, `{"email":null,"socialLinks":{},"success":false}`, out)
}

func TestEnrichCommandRequiresWebsite(t *testing.T) {
	_, err := execute(t, "enrich")
	require.Error(t, err)
}

func TestCommandsReportMissingConfigFile(t *testing.T) {
	for _, sub := range [][]string{{"enrich", "x.com"}, {"serve"}} {
		args := append(sub, "--config", "/nonexistent/leadhunter.yaml")
		_, err := execute(t, args...)
		require.ErrorContains(t, err, "load config failed")
	}
}

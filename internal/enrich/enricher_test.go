package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu    sync.Mutex
	urls  []string
	page  Page
	err   error
	panic bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (Page, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.panic {
		panic("collector exploded")
	}
	if f.err != nil {
		return Page{}, f.err
	}
	return f.page, nil
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func TestEnrich_EmptyInputMakesNoNetworkCalls(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	e := New(fetcher, zap.NewNop())

	for _, website := range []string{"", "   ", "\t\n"} {
		got := e.Enrich(context.Background(), website)
		if diff := cmp.Diff(Empty(), got); diff != "" {
			t.Errorf("Enrich(%q) mismatch (-want +got):\n%s", website, diff)
		}
	}
	require.Empty(t, fetcher.calls())
}

func TestEnrich_AddsSchemeBeforeFetching(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: Page{StatusCode: 200}}
	e := New(fetcher, nil)

	e.Enrich(context.Background(), "example.com")

	require.Equal(t, []string{"https://example.com"}, fetcher.calls())
}

func TestEnrich_EndToEndScenario(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: Page{
		URL:        "https://www.acmecorp.com",
		StatusCode: 200,
		Body: []byte(`<html><body>
			<a href="mailto:info@acmecorp.com">Contact</a>
			<a href="https://instagram.com/acmecorp">IG</a>
		</body></html>`),
	}}
	e := New(fetcher, zap.NewNop())

	got := e.Enrich(context.Background(), "www.acmecorp.com")

	email := "info@acmecorp.com"
	want := Result{
		Email:       &email,
		SocialLinks: map[Platform]string{PlatformInstagram: "https://instagram.com/acmecorp"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
	}
	require.True(t, got.Success())
	require.Equal(t, []string{"https://www.acmecorp.com"}, fetcher.calls())
}

func TestEnrich_FetchFailuresCollapseToEmpty(t *testing.T) {
	t.Parallel()

	failures := map[string]error{
		KindTimeout:   &TimeoutError{URL: "https://slow.test", Err: context.DeadlineExceeded},
		KindHTTPError: &HTTPError{URL: "https://gone.test", StatusCode: 404},
		KindTooLarge:  &TooLargeError{URL: "https://big.test", DeclaredSize: 2000000, Limit: 1 << 20},
		KindNetwork:   &NetworkError{URL: "https://nxdomain.test", Err: errors.New("no such host")},
	}

	for kind, fetchErr := range failures {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			e := New(&fakeFetcher{err: fetchErr}, zap.NewNop())
			got := e.Enrich(context.Background(), "business.test")
			if diff := cmp.Diff(Empty(), got); diff != "" {
				t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
			}
			require.False(t, got.Success())
		})
	}
}

func TestEnrich_PageWithoutDataIsFailure(t *testing.T) {
	t.Parallel()

	e := New(&fakeFetcher{page: Page{StatusCode: 200, Body: []byte("<p>only example@example.com</p>")}}, nil)
	got := e.Enrich(context.Background(), "https://quiet.test")
	require.False(t, got.Success())
	require.Nil(t, got.Email)
	require.Empty(t, got.SocialLinks)
}

func TestEnrich_RecoversFromFetcherPanic(t *testing.T) {
	t.Parallel()

	e := New(&fakeFetcher{panic: true}, zap.NewNop())
	var got Result
	require.NotPanics(t, func() {
		got = e.Enrich(context.Background(), "panic.test")
	})
	if diff := cmp.Diff(Empty(), got); diff != "" {
		t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrich_NilFetcher(t *testing.T) {
	t.Parallel()

	got := New(nil, nil).Enrich(context.Background(), "site.test")
	require.False(t, got.Success())
}

func TestEnrich_ConcurrentCallsAreIndependent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: Page{StatusCode: 200, Body: []byte(`<a href="https://tiktok.com/@shop">t</a>`)}}
	e := New(fetcher, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]Result, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Enrich(context.Background(), "shop.test")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, "https://tiktok.com/@shop", r.SocialLinks[PlatformTikTok])
	}
	require.Len(t, fetcher.calls(), 20)
}

func TestFailureKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", FailureKind(nil))
	require.Equal(t, KindEmptyInput, FailureKind(ErrEmptyInput))
	require.Equal(t, KindTimeout, FailureKind(context.DeadlineExceeded))
	require.Equal(t, KindTimeout, FailureKind(&TimeoutError{URL: "u", Err: errors.New("slow")}))
	require.Equal(t, KindHTTPError, FailureKind(&HTTPError{URL: "u", StatusCode: 500}))
	require.Equal(t, KindTooLarge, FailureKind(&TooLargeError{URL: "u", DeclaredSize: 5, Limit: 1}))
	require.Equal(t, KindNetwork, FailureKind(&NetworkError{URL: "u", Err: errors.New("refused")}))
	require.Equal(t, KindNetwork, FailureKind(errors.New("something else")))
}

package smoke

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/caffeineduck/headless/hostfunc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	version   int
	newErr    error
	calcErr   error
	got       []byte
	inputs    Inputs
	deletions int
}

func (f *fakeTarget) Version(ctx context.Context) (int, error) { return f.version, nil }

func (f *fakeTarget) New(ctx context.Context, data []byte) (Object, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	f.got = data
	return &fakeObject{f}, nil
}

type fakeObject struct{ t *fakeTarget }

func (o *fakeObject) Calculate(ctx context.Context, in Inputs) (float64, error) {
	o.t.inputs = in
	if o.t.calcErr != nil {
		return 0, o.t.calcErr
	}
	return 636.5, nil
}

func (o *fakeObject) Delete(ctx context.Context) error {
	o.t.deletions++
	return nil
}

type staticFetcher struct {
	data []byte
	err  error
	url  string
}

func (f *staticFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	f.url = u
	return f.data, f.err
}

func run(t *testing.T, target Target, fetcher Fetcher) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Run(context.Background(), Config{
		Target:  target,
		Fetcher: fetcher,
		Out:     &out,
		ErrOut:  &errOut,
		Logger:  zerolog.Nop(),
	})
	return out.String(), errOut.String(), err
}

func TestRun(t *testing.T) {
	target := &fakeTarget{version: 20250306}
	fetcher := &staticFetcher{data: []byte("osu file format v14")}

	out, errOut, err := run(t, target, fetcher)
	require.NoError(t, err)

	assert.Equal(t, "pp version: 20250306\npp: 636.5\n", out)
	assert.Empty(t, errOut)
	assert.Equal(t, BeatmapURL, fetcher.url)
	assert.Equal(t, []byte("osu file format v14"), target.got)
	assert.Equal(t, DefaultInputs, target.inputs)
	assert.Equal(t, 1, target.deletions)
}

func TestRunCalculationErrorStillReleases(t *testing.T) {
	target := &fakeTarget{version: 1, calcErr: errors.New("bad beatmap")}

	out, errOut, err := run(t, target, &staticFetcher{data: []byte("x")})
	require.NoError(t, err)

	assert.Equal(t, "pp version: 1\n", out)
	assert.Equal(t, "failed to calc pp: bad beatmap\n", errOut)
	assert.Equal(t, 1, target.deletions)
}

func TestRunFetchError(t *testing.T) {
	target := &fakeTarget{version: 1}

	out, _, err := run(t, target, &staticFetcher{err: errors.New("offline")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch beatmap")
	assert.Equal(t, "pp version: 1\n", out)
	assert.Zero(t, target.deletions)
}

func TestRunConstructError(t *testing.T) {
	target := &fakeTarget{version: 1, newErr: ErrConstruct}

	_, _, err := run(t, target, &staticFetcher{data: []byte("x")})
	require.ErrorIs(t, err, ErrConstruct)
	assert.Zero(t, target.deletions)
}

func TestRunWithHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[General]"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	target := &fakeTarget{version: 1}
	var out bytes.Buffer
	err = Run(context.Background(), Config{
		Target:  target,
		Fetcher: hostfunc.NewHTTP(hostfunc.HTTPConfig{AllowedHosts: []string{u.Hostname()}}),
		Out:     &out,
		ErrOut:  &out,
		Logger:  zerolog.Nop(),
		URL:     srv.URL + "/osu/3337690",
		Inputs:  &Inputs{Num300s: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("[General]"), target.got)
	assert.Equal(t, Inputs{Num300s: 1}, target.inputs)
}

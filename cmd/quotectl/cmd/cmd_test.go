package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/knoguchi/freightquote/internal/server"
	"github.com/knoguchi/freightquote/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	lastSearch service.SearchRequest
	quotes     map[string]quote.Quote
}

func (f *fakeService) Search(_ context.Context, req service.SearchRequest) (*service.SearchResponse, error) {
	f.lastSearch = req
	return &service.SearchResponse{Results: []quote.Quote{}, Query: req.QueryText}, nil
}

func (f *fakeService) Get(_ context.Context, id string) (*quote.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", quote.ErrQuoteNotFound, id)
	}
	return &q, nil
}

func (f *fakeService) Ready(context.Context) error { return nil }

func setupCmdTest(t *testing.T) (*fakeService, *bytes.Buffer) {
	t.Helper()
	fake := &fakeService{quotes: map[string]quote.Quote{
		"doc-1": {ID: "q-1", DocumentID: "doc-1", CustomerName: "Acme", LineItems: []quote.LineItem{}},
	}}
	orig := newService
	newService = func(context.Context) (server.QuoteService, func(), error) {
		return fake, func() {}, nil
	}
	t.Cleanup(func() {
		newService = orig
		_ = searchCmd.Flags().Set("limit", "0")
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	return fake, buf
}

func TestRootCmd_Help(t *testing.T) {
	_, buf := setupCmdTest(t)
	rootCmd.SetArgs([]string{"--help"})

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	for _, name := range []string{"quotectl", "search", "get"} {
		assert.True(t, strings.Contains(out, name), "help should mention %q", name)
	}
}

func TestSearchCmd(t *testing.T) {
	fake, buf := setupCmdTest(t)
	rootCmd.SetArgs([]string{"search", "--limit", "5", "quotes", "from", "China"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, service.SearchRequest{QueryText: "quotes from China", Limit: 5}, fake.lastSearch)

	var resp service.SearchResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "quotes from China", resp.Query)
}

func TestGetCmd(t *testing.T) {
	_, buf := setupCmdTest(t)
	rootCmd.SetArgs([]string{"get", "doc-1"})

	require.NoError(t, rootCmd.Execute())
	var got quote.Quote
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Acme", got.CustomerName)
}

func TestGetCmd_NotFound(t *testing.T) {
	setupCmdTest(t)
	rootCmd.SetArgs([]string{"get", "missing"})

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, quote.ErrQuoteNotFound)
}

func TestGetCmd_RequiresID(t *testing.T) {
	setupCmdTest(t)
	rootCmd.SetArgs([]string{"get"})

	assert.Error(t, rootCmd.Execute())
}

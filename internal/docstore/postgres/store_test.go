package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestStore_CollectionExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT to_regclass($1) IS NOT NULL`)).
		WithArgs(`"FreightQuotes_Vectorized"`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	s := NewStore(mock, 0, testLogger)
	ok, err := s.CollectionExists(context.Background(), "FreightQuotes_Vectorized")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchByFilter_Contains(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, payload FROM "FreightQuotes_Opus" WHERE payload->>$1 ILIKE $2 OR payload->>$3 ILIKE $4 ORDER BY id LIMIT $5`)).
		WithArgs("customer_name", "%China%", "origin_port", "%China%", 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload"}).
			AddRow("q-1", []byte(`{"customer_name": "China Ocean Shipping", "total_amount": 1200}`)).
			AddRow("q-2", []byte(`{"origin_port": "Shanghai, China"}`)))

	s := NewStore(mock, 0, testLogger)
	records, err := s.FetchByFilter(context.Background(), "FreightQuotes_Opus",
		docstore.ContainsAny("China", "customer_name", "origin_port"), 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q-1", records[0].ID)
	assert.Equal(t, "China Ocean Shipping", records[0].Fields["customer_name"])
	assert.Equal(t, "Shanghai, China", records[1].Fields["origin_port"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchByFilter_ExistenceAndEqual(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, payload FROM "FreightQuotes_Vectorized" ORDER BY id LIMIT $1`)).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, payload FROM "FreightQuotes_Vectorized" WHERE payload->>$1 = $2 ORDER BY id LIMIT $3`)).
		WithArgs("document_id", "doc_50%", 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload"}).AddRow("q-9", []byte(`{"document_id": "doc_50%"}`)))

	s := NewStore(mock, 0, testLogger)
	records, err := s.FetchByFilter(context.Background(), "FreightQuotes_Vectorized", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = s.FetchByFilter(context.Background(), "FreightQuotes_Vectorized", docstore.Equal("document_id", "doc_50%"), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "q-9", records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchByVector(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	vec := []float32{0.1, 0.2, 0.3}
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, payload, embedding <=> $1 AS distance FROM "FreightQuotes_Vectorized" WHERE embedding IS NOT NULL ORDER BY distance LIMIT $2`)).
		WithArgs(pgvector.NewVector(vec), 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "distance"}).
			AddRow("q-1", []byte(`{"quote_reference": "Q-1"}`), 0.12).
			AddRow("q-2", []byte(`{"quote_reference": "Q-2"}`), 0.64))

	s := NewStore(mock, 0, testLogger)
	results, err := s.FetchByVector(context.Background(), "FreightQuotes_Vectorized", vec, 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.12, results[0].Distance)
	assert.Equal(t, "Q-2", results[1].Fields["quote_reference"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing table", &pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`}, quote.ErrCollectionNotFound},
		{"connection", errors.New("connection refused"), quote.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(`SELECT id, payload FROM`).WithArgs(5).WillReturnError(tt.err)

			s := NewStore(mock, 0, testLogger)
			_, err = s.FetchByFilter(context.Background(), "FreightQuotes_Vectorized", nil, 5)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStore_MalformedPayloadKeepsRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, payload FROM`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload"}).
			AddRow("q-1", []byte(`{"customer_name": "Acme"}`)).
			AddRow("q-2", []byte(`[1, 2]`)).
			AddRow("q-3", []byte(`{not json`)).
			AddRow("q-4", []byte(`null`)).
			AddRow("q-5", []byte(`{"customer_name": "Globex"}`)))

	s := NewStore(mock, 0, testLogger)
	records, err := s.FetchByFilter(context.Background(), "FreightQuotes_Vectorized", nil, 5)
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "Acme", records[0].Fields["customer_name"])
	for _, rec := range records[1:4] {
		assert.NotNil(t, rec.Fields, rec.ID)
		assert.Empty(t, rec.Fields, rec.ID)
	}
	assert.Equal(t, "q-3", records[2].ID)
	assert.Equal(t, "Globex", records[4].Fields["customer_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchByVector_MalformedPayloadKeepsRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`WHERE embedding IS NOT NULL`).
		WithArgs(pgxmock.AnyArg(), 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "distance"}).
			AddRow("q-1", []byte(`"just a string"`), 0.2).
			AddRow("q-2", []byte(`{"quote_reference": "Q-2"}`), 0.3))

	s := NewStore(mock, 0, testLogger)
	results, err := s.FetchByVector(context.Background(), "FreightQuotes_Vectorized", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Fields)
	assert.Equal(t, 0.2, results[0].Distance)
	assert.Equal(t, "Q-2", results[1].Fields["quote_reference"])
}

func TestDecodePayload(t *testing.T) {
	_, err := decodePayload([]byte(`[1]`))
	assert.ErrorIs(t, err, quote.ErrMalformedRecord)

	fields, err := decodePayload(nil)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
}

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFields(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		fields Fields
		want   string
	}{
		{
			name:   "empty document",
			doc:    "",
			fields: Fields{"name": "Ada"},
			want:   `{"name":"Ada"}`,
		},
		{
			name:   "overwrites only provided keys",
			doc:    `{"name":"Ada","email":"ada@example.com"}`,
			fields: Fields{"name": "Grace"},
			want:   `{"name":"Grace","email":"ada@example.com"}`,
		},
		{
			name:   "nested values replace wholesale",
			doc:    `{"skills":[{"name":"Frontend","skills":["React"]}]}`,
			fields: Fields{"skills": []map[string]any{{"name": "Backend", "skills": []string{"Go"}}}},
			want:   `{"skills":[{"name":"Backend","skills":["Go"]}]}`,
		},
		{
			name:   "keys with path syntax are literal",
			doc:    `{}`,
			fields: Fields{"a.b": 1},
			want:   `{"a.b":1}`,
		},
		{
			name:   "reserved keys dropped",
			doc:    `{"title":"x"}`,
			fields: Fields{"id": "nope", "updatedAt": "nope"},
			want:   `{"title":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeFields([]byte(tt.doc), tt.fields)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestSortRecords_ByDocumentField(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*Record{
		{ID: "b", CreatedAt: base, Fields: []byte(`{"title":"beta","rank":2}`)},
		{ID: "c", CreatedAt: base, Fields: []byte(`{"title":"gamma"}`)},
		{ID: "a", CreatedAt: base, Fields: []byte(`{"title":"alpha","rank":10}`)},
	}

	SortRecords(records, "title")
	assert.Equal(t, []string{"a", "b", "c"}, ids(records))

	SortRecords(records, "-rank")
	assert.Equal(t, []string{"a", "b", "c"}, ids(records), "missing values sort last when descending")

	SortRecords(records, "rank")
	assert.Equal(t, []string{"c", "b", "a"}, ids(records))
}

func TestSortRecords_EmptyKeyKeepsOrder(t *testing.T) {
	records := []*Record{{ID: "z"}, {ID: "a"}}
	SortRecords(records, "")
	assert.Equal(t, []string{"z", "a"}, ids(records))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("settings")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func ids(records []*Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

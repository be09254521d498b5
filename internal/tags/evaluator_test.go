package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

func testRecord() *models.Record {
	return &models.Record{
		Model: "customers",
		ID:    7,
		Values: map[string]any{
			"name":     "Ada Lovelace",
			"email":    "ada@example.com",
			"language": "en",
			"balance":  12,
			"notes":    nil,
		},
	}
}

func TestEvaluate(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"no tags", "Hello world", "Hello world"},
		{"field", "Dear ${record.name},", "Dear Ada Lovelace,"},
		{"index access", `${record["email"]}`, "ada@example.com"},
		{"several tags", "${model}/${id}", "customers/7"},
		{"arithmetic", "${record.balance * 2}", "24"},
		{"concatenation", `${"<" + record.email + ">"}`, "<ada@example.com>"},
		{"nil renders empty", "[${record.notes}]", "[]"},
		{"upper", "${upper(record.language)}", "EN"},
		{"default", `${default(record.notes, "none")}`, "none"},
		{"braces in string literal", `${"{" + record.language + "}"}`, "{en}"},
		{"empty tag", "a${}b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.text, testRecord())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	e := New()

	_, err := e.Evaluate("Dear ${record.name", testRecord())
	assert.ErrorIs(t, err, ErrUnterminatedTag)

	_, err = e.Evaluate("${unknown(1)}", testRecord())
	assert.Error(t, err)
}

func TestEvaluate_NilRecord(t *testing.T) {
	got, err := New().Evaluate("id=${id}", nil)
	require.NoError(t, err)
	assert.Equal(t, "id=0", got)
}

func TestHasTags(t *testing.T) {
	assert.True(t, HasTags("to ${record.email}"))
	assert.False(t, HasTags("to someone@example.com"))
}

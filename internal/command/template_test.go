package command_test

import (
	"testing"

	"github.com/signalnine/sweep/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row map[string]string

func (r row) Get(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

func TestMaterialize(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		row  row
		want []string
	}{
		{
			name: "single placeholder",
			argv: []string{"./prog", "--n={n}"},
			row:  row{"n": "10"},
			want: []string{"./prog", "--n=10"},
		},
		{
			name: "several placeholders in one argument",
			argv: []string{"run", "{a}x{b}", "{a}"},
			row:  row{"a": "1", "b": "2"},
			want: []string{"run", "1x2", "1"},
		},
		{
			name: "escaped braces",
			argv: []string{"echo", "{{n}}={n}"},
			row:  row{"n": "5"},
			want: []string{"echo", "{n}=5"},
		},
		{
			name: "no placeholders",
			argv: []string{"true", ""},
			row:  row{},
			want: []string{"true", ""},
		},
		{
			name: "value with spaces stays one argument",
			argv: []string{"prog", "{msg}"},
			row:  row{"msg": "a b; rm -rf /"},
			want: []string{"prog", "a b; rm -rf /"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := command.Compile(tt.argv)
			require.NoError(t, err)
			got, err := tmpl.Materialize(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaterializeDoesNotRescanValues(t *testing.T) {
	tmpl, err := command.Compile([]string{"prog", "{a}", "{b}"})
	require.NoError(t, err)

	got, err := tmpl.Materialize(row{"a": "{b}", "b": "}{"})
	require.NoError(t, err)
	assert.Equal(t, []string{"prog", "{b}", "}{"}, got)
}

func TestMaterializeUnknownField(t *testing.T) {
	tmpl, err := command.Compile([]string{"prog", "--size={size}"})
	require.NoError(t, err)

	_, err = tmpl.Materialize(row{"n": "1"})
	require.ErrorIs(t, err, command.ErrUnknownField)

	var ufe *command.UnknownFieldError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "size", ufe.Field)
	assert.Equal(t, 1, ufe.Arg)
}

func TestCompileMalformed(t *testing.T) {
	for _, argv := range [][]string{
		nil,
		{"prog", "{n"},
		{"prog", "n}"},
		{"prog", "{}"},
		{"prog", "{a{b}"},
	} {
		_, err := command.Compile(argv)
		assert.ErrorIs(t, err, command.ErrMalformedTemplate, "%q", argv)
	}
}

func TestFields(t *testing.T) {
	tmpl, err := command.Compile([]string{"{b}", "{a}-{b}", "{{c}}"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, tmpl.Fields())
	assert.Equal(t, "{b} {a}-{b} {{c}}", tmpl.String())
}

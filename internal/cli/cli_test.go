package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/romschema/internal/options"
)

//nolint:funlen // test functions can be long
func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, input string, set []string)
		wantErr string
	}{
		{
			name: "single file",
			args: []string{"-s", "ff6.yaml", "ff6.sfc"},
			check: func(t *testing.T, input string, _ []string) {
				t.Helper()
				assert.Equal(t, "ff6.sfc", input)
			},
		},
		{
			name: "repeated edits",
			args: []string{"-s", "ff6.yaml", "--set", "party[0].hp=99", "--set", "gold=5", "ff6.sfc"},
			check: func(t *testing.T, _ string, set []string) {
				t.Helper()
				assert.Equal(t, []string{"party[0].hp=99", "gold=5"}, set)
			},
		},
		{
			name:    "missing schema",
			args:    []string{"ff6.sfc"},
			wantErr: "schema",
		},
		{
			name:    "missing file",
			args:    []string{"-s", "ff6.yaml"},
			wantErr: "no ROM file given",
		},
		{
			name:    "invalid mode",
			args:    []string{"-s", "ff6.yaml", "-m", "exROM", "ff6.sfc"},
			wantErr: "exROM",
		},
		{
			name:    "invalid scale",
			args:    []string{"-s", "ff6.yaml", "--scale", "0", "ff6.sfc"},
			wantErr: "invalid scale",
		},
		{
			name:    "palette without graphics",
			args:    []string{"-s", "ff6.yaml", "--palette", "palettes[0]", "ff6.sfc"},
			wantErr: "requires a graphics link",
		},
		{
			name:    "write with batch",
			args:    []string{"-s", "ff6.yaml", "--batch", "*.sfc", "-w", "out.sfc"},
			wantErr: "single input file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseArgs(tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			tt.check(t, opts.Input, opts.Set)
		})
	}
}

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs([]string{"--schema", "ff6.yaml", "a.sfc", "b.sfc"})
	assert.NoError(t, err)
	assert.Equal(t, 1, opts.Scale)
	assert.Equal(t, 16, opts.Columns)
	assert.Equal(t, "render.png", opts.RenderOut)
	assert.Equal(t, []string{"a.sfc", "b.sfc"}, opts.Positional.Files)
	assert.Equal(t, "a.sfc", opts.Input)
	assert.False(t, opts.NoTree)
}

func TestUsageError(t *testing.T) {
	_, err := ParseArgs([]string{"--help"})
	var usageErr *UsageError
	assert.True(t, errors.As(err, &usageErr))

	var buf bytes.Buffer
	usageErr.WriteUsage(&buf)
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("--schema")))
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("romschema")))
}

func TestStartProfileDisabled(t *testing.T) {
	stop := StartProfile(options.Program{})
	stop()
}

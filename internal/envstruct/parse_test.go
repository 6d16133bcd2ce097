package envstruct_test

import (
	"github.com/myrjola/caselink/internal/envstruct"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func noEnv(_ string) (string, bool) { return "", false }

func TestPopulate(t *testing.T) {
	type args struct {
		v         any
		lookupEnv func(string) (string, bool)
	}
	tests := []struct {
		name    string
		args    args
		want    any
		wantErr error
	}{
		{
			name:    "nil",
			args:    args{v: nil, lookupEnv: noEnv},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "not pointer",
			args:    args{v: struct{}{}, lookupEnv: noEnv},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "empty struct",
			args: args{v: &struct{}{}, lookupEnv: noEnv},
			want: &struct{}{},
		},
		{
			name: "empty env",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					EnvVar string `env:"ENV_VAR"`
				}{},
				lookupEnv: noEnv,
			},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name: "picks correct env variable",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					EnvVar     string `env:"ENV_VAR"`
					EnvVar2    string `env:"ENV_VAR2"`
					OtherValue string
				}{},
				lookupEnv: func(s string) (string, bool) { return strings.ToLower(s), true },
			},
			want: &struct {
				EnvVar     string
				EnvVar2    string
				OtherValue string
			}{EnvVar: "env_var", EnvVar2: "env_var2", OtherValue: ""},
		},
		{
			name: "handles typed defaults",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Pool      int           `env:"POOL" envDefault:"100"`
					Threshold float64       `env:"THRESHOLD" envDefault:"0.75"`
					Timeout   time.Duration `env:"TIMEOUT" envDefault:"5s"`
					Enabled   bool          `env:"ENABLED" envDefault:"true"`
				}{},
				lookupEnv: noEnv,
			},
			want: &struct {
				Pool      int
				Threshold float64
				Timeout   time.Duration
				Enabled   bool
			}{Pool: 100, Threshold: 0.75, Timeout: 5 * time.Second, Enabled: true},
		},
		{
			name: "rejects unparseable number",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Pool int `env:"POOL"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "many", true },
			},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "rejects unsupported types",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Tags []string `env:"TAGS"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "a,b", true },
			},
			wantErr: envstruct.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := envstruct.Populate(tt.args.v, tt.args.lookupEnv)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.EqualValues(t, tt.want, tt.args.v)
		})
	}
}

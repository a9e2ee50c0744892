package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/medkit/errors"
)

func TestCheckConstraint(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		wantErr    bool
	}{
		{"", "0.3.0", false},
		{">= 0.1.0", "0.3.0", false},
		{"^0.3", "0.3.2", false},
		{"< 0.3.0", "0.3.0", true},
		{">= 1.0", "0.3.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+" "+tt.version, func(t *testing.T) {
			err := CheckConstraint(tt.constraint, tt.version)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalidRequestError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.True(t, errors.IsInvalidRequestError(CheckConstraint("not a constraint !!", "0.3.0")))
	assert.Error(t, CheckConstraint(">= 0.1", "dev"))
}

func TestInfo(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.String(), "medkit "+Version)

	assert.Equal(t, "abcdef1", Info{CommitHash: "abcdef1234"}.Short())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

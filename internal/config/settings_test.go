package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 60*time.Second, s.Oracle.TimeoutDuration())
}

func TestValidate_AggregatesErrors(t *testing.T) {
	// Arrange
	s := Default()
	s.OutputDir = " "
	s.MarkdownNameFormat = "{input_stem}_params"
	s.ExcelNameFormat = ""
	s.Oracle.Endpoint = "ftp://example.com"
	s.Oracle.Timeout = "soon"

	// Act
	err := s.Validate()

	// Assert
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 5)
	assert.Contains(t, err.Error(), "output_dir")
	assert.Contains(t, err.Error(), "markdown_name_format")
	assert.Contains(t, err.Error(), "excel_name_format")
	assert.Contains(t, err.Error(), "oracle.endpoint")
	assert.Contains(t, err.Error(), "oracle.timeout")
}

func TestValidate_Timeout(t *testing.T) {
	testCases := []struct {
		timeout string
		wantErr bool
	}{
		{timeout: "90s"},
		{timeout: " 2m "},
		{timeout: "0s", wantErr: true},
		{timeout: "-5s", wantErr: true},
		{timeout: "60", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.timeout, func(t *testing.T) {
			s := Default()
			s.Oracle.Timeout = tc.timeout
			err := s.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, s.Oracle.TimeoutDuration())
		})
	}
}
